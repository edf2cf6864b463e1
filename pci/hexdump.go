package pci

import (
	"bufio"
	"fmt"
	"io"
)

const hexDumpWidth = 16

// HexDump writes b in the lspci -x layout: the offset of every 16 byte row
// followed by the bytes of the row.
func HexDump(w io.Writer, b []byte) error {
	bw := bufio.NewWriter(w)
	for off := 0; off < len(b); off += hexDumpWidth {
		end := min(off+hexDumpWidth, len(b))
		fmt.Fprintf(bw, "%02x:", off)
		for _, c := range b[off:end] {
			fmt.Fprintf(bw, " %02x", c)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
