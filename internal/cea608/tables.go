package cea608

// basicChars maps the 608 codes that differ from ASCII.
var basicChars = map[byte]rune{
	0x2A: 'á',
	0x5C: 'é',
	0x5E: 'í',
	0x5F: 'ó',
	0x60: 'ú',
	0x7B: 'ç',
	0x7C: '÷',
	0x7D: 'Ñ',
	0x7E: 'ñ',
	0x7F: '█',
}

// specialChars is indexed by the second byte minus 0x30 (first byte 0x11).
var specialChars = [16]rune{
	'®', '°', '½', '¿', '™', '¢', '£', '♪',
	'à', ' ', 'è', 'â', 'ê', 'î', 'ô', 'û',
}

// extendedChars holds the two extended sets, indexed by second byte minus
// 0x20. Set 0 is first byte 0x12 (Spanish/French), set 1 is 0x13
// (Portuguese/German/Danish).
var extendedChars = [2][32]rune{
	{
		'Á', 'É', 'Ó', 'Ú', 'Ü', 'ü', '‘', '¡',
		'*', '\'', '—', '©', '℠', '•', '“', '”',
		'À', 'Â', 'Ç', 'È', 'Ê', 'Ë', 'ë', 'Î',
		'Ï', 'ï', 'Ô', 'Ù', 'ù', 'Û', '«', '»',
	},
	{
		'Ã', 'ã', 'Í', 'Ì', 'ì', 'Ò', 'ò', 'Õ',
		'õ', '{', '}', '\\', '^', '_', '|', '~',
		'Ä', 'ä', 'Ö', 'ö', 'ß', '¥', '¤', '│',
		'Å', 'å', 'Ø', 'ø', '┌', '┐', '└', '┘',
	},
}

func basicChar(b byte) rune {
	if r, ok := basicChars[b]; ok {
		return r
	}
	return rune(b)
}

// pacRows maps ((cc1&7)<<1 | row bit) to a 0-based screen row.
var pacRows = [16]int{10, 10, 0, 1, 2, 3, 11, 12, 13, 14, 4, 5, 6, 7, 8, 9}

// pacRow returns the row addressed by a channel-1 normalized PAC.
func pacRow(cc1, cc2 byte) int {
	return pacRows[int(cc1&0x07)<<1|int(cc2>>5&0x01)]
}

var colors = [7]string{"white", "green", "blue", "cyan", "red", "yellow", "magenta"}

// styleAttr decodes the 4-bit attribute of a PAC or mid-row code. Values
// 0-6 are colors, 7 is white italics and 8-15 are PAC indents.
func styleAttr(attr byte) (color string, italic bool, indent int) {
	switch {
	case attr < 7:
		return colors[attr], false, -1
	case attr == 7:
		return "white", true, -1
	}
	return "white", false, int(attr-8) * 4
}

// Miscellaneous control codes, second byte with first byte 0x14.
const (
	cmdRCL = 0x20 // resume caption loading
	cmdBS  = 0x21 // backspace
	cmdAOF = 0x22 // alarm off
	cmdAON = 0x23 // alarm on
	cmdDER = 0x24 // delete to end of row
	cmdRU2 = 0x25
	cmdRU3 = 0x26
	cmdRU4 = 0x27
	cmdFON = 0x28 // flash on
	cmdRDC = 0x29 // resume direct captioning
	cmdTR  = 0x2A // text restart
	cmdRTD = 0x2B // resume text display
	cmdEDM = 0x2C // erase displayed memory
	cmdCR  = 0x2D // carriage return
	cmdENM = 0x2E // erase non-displayed memory
	cmdEOC = 0x2F // end of caption
)

var miscNames = [16]string{
	"RCL", "BS", "AOF", "AON", "DER", "RU2", "RU3", "RU4",
	"FON", "RDC", "TR", "RTD", "EDM", "CR", "ENM", "EOC",
}
