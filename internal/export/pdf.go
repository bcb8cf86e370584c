package export

import (
	"bytes"
	"fmt"
	"strings"
)

// PDF renders a minimal single-page document: the title followed by
// one line per entry, Helvetica throughout. Object order is fixed
// (Pages, Font, Page, Contents, Catalog) and no timestamp or metadata
// objects are emitted, so identical inputs yield identical bytes.
func PDF(title string, lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 12 Tf\n14 TL\n72 760 Td\n")
	fmt.Fprintf(&content, "(%s) Tj\n", escapeText(title))
	for _, line := range lines {
		fmt.Fprintf(&content, "T*\n(%s) Tj\n", escapeText(line))
	}
	content.WriteString("ET")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)
	writeObj := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	writeObj(1, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(2, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	writeObj(3, "<< /Type /Page /Parent 1 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 2 0 R >> >> /Contents 4 0 R >>")
	writeObj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream",
		content.Len(), content.String()))
	writeObj(5, "<< /Type /Catalog /Pages 1 0 R >>")

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 5 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}

// escapeText escapes the PDF string delimiters and drops control
// characters, which have no place in single-line report text.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '(':
			b.WriteString(`\(`)
		case r == ')':
			b.WriteString(`\)`)
		case r < 0x20 || r == 0x7f:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
