package chess

// NoSquare marks an unparseable or unset square.
const NoSquare = -1

// Squares are indexed 0..63 row-major starting from the 8th rank:
// a8=0, h8=7, a1=56, h1=63.

// PosToCoordinateString returns the textual form ("a8".."h1") of a square index.
// Indices outside 0..63 return "".
func PosToCoordinateString(pos int) string {
	if pos < 0 || pos > 63 {
		return ""
	}
	row, col := pos/8, pos%8
	return string([]byte{byte('a' + col), byte('0' + 8 - row)})
}

// CoordinateStringToPos parses the first two characters of s as a square.
// Returns NoSquare when s does not start with a file letter and rank digit.
func CoordinateStringToPos(s string) int {
	if len(s) < 2 {
		return NoSquare
	}
	colChr, rowChr := s[0], s[1]
	if colChr < 'a' || colChr > 'h' || rowChr < '1' || rowChr > '8' {
		return NoSquare
	}
	col := int(colChr - 'a')
	row := int(rowChr - '1')
	return (7-row)*8 + col
}
