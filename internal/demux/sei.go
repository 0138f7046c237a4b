package demux

const (
	seiTypeRegisteredUserData = 4
	t35CountryUSA             = 0xB5
	t35ProviderATSC           = 0x0031
)

// seiCaptions walks the SEI messages of an RBSP (NAL header already
// removed, emulation prevention still present) and returns the cc_data of
// every ATSC registered user data message.
func seiCaptions(payload []byte) []ccTriplet {
	rbsp := removeEmulationPrevention(payload)
	var out []ccTriplet
	i := 0
	for i < len(rbsp) {
		if rbsp[i] == 0x80 {
			break // rbsp_trailing_bits
		}

		payloadType := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadType += 255
			i++
		}
		if i >= len(rbsp) {
			break
		}
		payloadType += int(rbsp[i])
		i++

		payloadSize := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadSize += 255
			i++
		}
		if i >= len(rbsp) {
			break
		}
		payloadSize += int(rbsp[i])
		i++

		if i+payloadSize > len(rbsp) {
			break
		}
		if payloadType == seiTypeRegisteredUserData {
			out = append(out, t35Captions(rbsp[i:i+payloadSize])...)
		}
		i += payloadSize
	}
	return out
}

// t35Captions decodes user_data_registered_itu_t_t35 when it carries ATSC
// A/53 caption data.
func t35Captions(b []byte) []ccTriplet {
	if len(b) < 3 || b[0] != t35CountryUSA {
		return nil
	}
	if uint16(b[1])<<8|uint16(b[2]) != t35ProviderATSC {
		return nil
	}
	triplets, _ := parseGA94(b[3:])
	return triplets
}
