package pakbus

import (
	"strconv"
	"strings"
)

// fromHex turns a whitespace-separated hex dump ("A0 01 98 02") into bytes,
// the way the reference codec's tests build wire fixtures.
func fromHex(h string) []byte {
	fields := strings.Fields(h)
	ret := make([]byte, len(fields))
	for i, v := range fields {
		b, err := strconv.ParseUint(v, 16, 8)
		if err != nil {
			panic(err)
		}
		ret[i] = byte(b)
	}
	return ret
}
