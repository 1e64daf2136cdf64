package testguest

import (
	"bytes"
	"fmt"
)

const pageContent = "BT /F1 24 Tf 72 720 Td (Hello World) Tj ET\n"

// PDFTemplate returns the single-page PDF the guest renders, with a zeroed
// stamp, and the offset of the stamp's first hex digit.
func PDFTemplate() (pdf []byte, stampOffset int) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	stampOffset = buf.Len() + len(StampPrefix)
	buf.WriteString(StampPrefix + "00000000\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(pageContent), pageContent),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes(), stampOffset
}
