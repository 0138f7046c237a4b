package mpegts

import "errors"

const (
	pidPAT     = 0x0000
	tableIDPAT = 0x00
	tableIDPMT = 0x02
)

var (
	errPSIPointer = errors.New("mpegts: PSI pointer field out of range")
	errPATShort   = errors.New("mpegts: PAT section too short")
	errPMTShort   = errors.New("mpegts: PMT section too short")
)

// parsePSI walks every section in a reassembled PSI payload and returns one
// Unit per PAT or PMT section. Other table IDs are skipped.
func parsePSI(payload []byte, pid uint16) ([]*Unit, error) {
	if len(payload) < 1 {
		return nil, errPSIPointer
	}
	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return nil, errPSIPointer
	}

	var units []*Unit
	for offset+3 <= len(payload) {
		tableID := payload[offset]
		// 0xFF is stuffing; a clear section_syntax_indicator is zero padding.
		if tableID == 0xFF || payload[offset+1]&0x80 == 0 {
			break
		}
		sectionLength := int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2])
		sectionEnd := offset + 3 + sectionLength
		if sectionEnd > len(payload) {
			break
		}
		section := payload[offset:sectionEnd]
		offset = sectionEnd

		switch tableID {
		case tableIDPAT:
			pat, err := parsePAT(section)
			if err != nil {
				return units, err
			}
			units = append(units, &Unit{PID: pid, PAT: pat})
		case tableIDPMT:
			pmt, err := parsePMT(section)
			if err != nil {
				return units, err
			}
			units = append(units, &Unit{PID: pid, PMT: pmt})
		}
	}
	return units, nil
}

// parsePAT decodes a PAT section:
//
//	[0]      table_id
//	[1-2]    syntax(1) zero(1) reserved(2) section_length(12)
//	[3-7]    transport_stream_id, version, section numbers
//	[8..N-4] program_number(16) reserved(3) PID(13)
//	[N-4..N] CRC32
func parsePAT(section []byte) (*PATData, error) {
	if len(section) < 12 {
		return nil, errPATShort
	}
	if err := checkCRC(section); err != nil {
		return nil, err
	}

	pat := &PATData{}
	for i := 8; i+4 <= len(section)-4; i += 4 {
		num := uint16(section[i])<<8 | uint16(section[i+1])
		if num == 0 {
			continue // network PID
		}
		pat.Programs = append(pat.Programs, PATProgram{
			ProgramNumber: num,
			PMTPID:        uint16(section[i+2]&0x1F)<<8 | uint16(section[i+3]),
		})
	}
	return pat, nil
}

// parsePMT decodes a PMT section:
//
//	[3-4]   program_number
//	[8-9]   reserved(3) PCR_PID(13)
//	[10-11] reserved(4) program_info_length(12)
//	then program descriptors, then 5-byte stream entries each followed
//	by ES_info_length bytes of descriptors, then CRC32.
func parsePMT(section []byte) (*PMTData, error) {
	if len(section) < 16 {
		return nil, errPMTShort
	}
	if err := checkCRC(section); err != nil {
		return nil, err
	}

	pmt := &PMTData{ProgramNumber: uint16(section[3])<<8 | uint16(section[4])}
	end := len(section) - 4
	offset := 12 + (int(section[10]&0x0F)<<8 | int(section[11]))
	for offset+5 <= end {
		esInfoLength := int(section[offset+3]&0x0F)<<8 | int(section[offset+4])
		pmt.ElementaryStreams = append(pmt.ElementaryStreams, ElementaryStream{
			StreamType: section[offset],
			PID:        uint16(section[offset+1]&0x1F)<<8 | uint16(section[offset+2]),
		})
		offset += 5 + esInfoLength
	}
	return pmt, nil
}
