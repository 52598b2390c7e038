package grid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
)

// BIFF8 record identifiers used when walking a workbook stream.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recXF         = 0x00E0
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recFormat     = 0x041E
	recBOF        = 0x0809
)

const (
	biff8Version       = 0x0600
	bofGlobals         = 0x0005
	bofWorksheet       = 0x0010
	sheetTypeWorksheet = 0x00
	xlsMaxCols         = 256
)

var errTruncated = errors.New("truncated record")

var le = binary.LittleEndian

// xlsWorkbook holds the workbook globals needed to type cells.
type xlsWorkbook struct {
	stream    []byte
	date1904  bool
	xfFormats []uint16
	formats   map[uint16]string
	sst       []string
	sheets    []uint32
}

// readXLS loads the first worksheet of a legacy BIFF8 (.xls) workbook.
// Cells are read from the raw records so numbers keep full precision and
// numbers carrying a date number format become Date cells, matching the
// xlsx reader.
func readXLS(data []byte) (*Grid, error) {
	stream, err := workbookStream(data)
	if err != nil {
		return nil, err
	}
	wb, err := parseGlobals(stream)
	if err != nil {
		return nil, err
	}
	if len(wb.sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return wb.readSheet(wb.sheets[0])
}

// workbookStream extracts the BIFF stream from the compound file container.
func workbookStream(data []byte) ([]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if strings.EqualFold(entry.Name, "Workbook") || strings.EqualFold(entry.Name, "Book") {
			return io.ReadAll(entry)
		}
	}
	return nil, errors.New("no workbook stream in container")
}

func nextRecord(stream []byte, off int) (id uint16, body []byte, next int, err error) {
	if off+4 > len(stream) {
		return 0, nil, 0, errTruncated
	}
	id = le.Uint16(stream[off:])
	end := off + 4 + int(le.Uint16(stream[off+2:]))
	if end > len(stream) {
		return 0, nil, 0, errTruncated
	}
	return id, stream[off+4 : end], end, nil
}

func parseGlobals(stream []byte) (*xlsWorkbook, error) {
	id, body, off, err := nextRecord(stream, 0)
	if err != nil {
		return nil, err
	}
	if id != recBOF || len(body) < 4 {
		return nil, errors.New("missing BOF record")
	}
	if v := le.Uint16(body); v != biff8Version {
		return nil, fmt.Errorf("unsupported BIFF version %#04x", v)
	}
	if dt := le.Uint16(body[2:]); dt != bofGlobals {
		return nil, fmt.Errorf("unexpected substream type %#04x", dt)
	}

	wb := &xlsWorkbook{stream: stream, formats: map[uint16]string{}}
	for {
		id, body, next, err := nextRecord(stream, off)
		if err != nil {
			return nil, fmt.Errorf("globals: %w", err)
		}
		switch id {
		case recEOF:
			return wb, nil
		case recDateMode:
			if len(body) >= 2 {
				wb.date1904 = le.Uint16(body) == 1
			}
		case recFormat:
			if len(body) >= 2 {
				if code, err := xlUnicodeString(body[2:]); err == nil {
					wb.formats[le.Uint16(body)] = code
				}
			}
		case recXF:
			if len(body) >= 4 {
				wb.xfFormats = append(wb.xfFormats, le.Uint16(body[2:]))
			}
		case recBoundSheet:
			if len(body) >= 6 && body[5] == sheetTypeWorksheet {
				wb.sheets = append(wb.sheets, le.Uint32(body))
			}
		case recSST:
			segs := [][]byte{body}
			for {
				cid, cbody, cnext, err := nextRecord(stream, next)
				if err != nil || cid != recContinue {
					break
				}
				segs = append(segs, cbody)
				next = cnext
			}
			if wb.sst, err = parseSST(segs); err != nil {
				return nil, fmt.Errorf("shared strings: %w", err)
			}
		}
		off = next
	}
}

func (wb *xlsWorkbook) readSheet(pos uint32) (*Grid, error) {
	if int64(pos) >= int64(len(wb.stream)) {
		return nil, errors.New("sheet offset out of range")
	}
	off := int(pos)
	id, body, off, err := nextRecord(wb.stream, off)
	if err != nil {
		return nil, err
	}
	if id != recBOF || len(body) < 4 || le.Uint16(body[2:]) != bofWorksheet {
		return nil, errors.New("first sheet is not a worksheet")
	}

	var (
		rows    [][]Cell
		depth   = 1
		pending = -1
		pendCol int
	)
	set := func(r, c int, cell Cell) {
		if c >= xlsMaxCols || cell.IsBlank() {
			return
		}
		for len(rows) <= r {
			rows = append(rows, nil)
		}
		for len(rows[r]) <= c {
			rows[r] = append(rows[r], Cell{})
		}
		rows[r][c] = cell
	}

	for depth > 0 {
		id, body, next, err := nextRecord(wb.stream, off)
		if err != nil {
			return nil, fmt.Errorf("worksheet: %w", err)
		}
		off = next
		switch id {
		case recBOF:
			depth++
			continue
		case recEOF:
			depth--
			continue
		}
		if depth > 1 {
			continue
		}

		switch id {
		case recLabelSST:
			if len(body) >= 10 {
				if i := le.Uint32(body[6:]); int64(i) < int64(len(wb.sst)) {
					set(cellRow(body), cellCol(body), TextCell(wb.sst[i]))
				}
			}
		case recLabel:
			if len(body) >= 9 {
				if s, err := xlUnicodeString(body[6:]); err == nil {
					set(cellRow(body), cellCol(body), TextCell(s))
				}
			}
		case recNumber:
			if len(body) >= 14 {
				v := math.Float64frombits(le.Uint64(body[6:]))
				set(cellRow(body), cellCol(body), wb.numberCell(le.Uint16(body[4:]), v))
			}
		case recRK:
			if len(body) >= 10 {
				set(cellRow(body), cellCol(body), wb.numberCell(le.Uint16(body[4:]), decodeRK(le.Uint32(body[6:]))))
			}
		case recMulRK:
			if len(body) >= 6 {
				r, first := cellRow(body), cellCol(body)
				for i := 0; 4+6*i+6 <= len(body)-2; i++ {
					at := 4 + 6*i
					set(r, first+i, wb.numberCell(le.Uint16(body[at:]), decodeRK(le.Uint32(body[at+2:]))))
				}
			}
		case recFormula:
			if len(body) < 14 {
				continue
			}
			r, c := cellRow(body), cellCol(body)
			if le.Uint16(body[12:]) != 0xFFFF {
				set(r, c, wb.numberCell(le.Uint16(body[4:]), math.Float64frombits(le.Uint64(body[6:]))))
				continue
			}
			switch body[6] {
			case 0x00:
				// The cached string result follows in a STRING record.
				pending, pendCol = r, c
			case 0x01:
				set(r, c, boolCell(body[8]))
			}
		case recString:
			if pending >= 0 {
				if s, err := xlUnicodeString(body); err == nil {
					set(pending, pendCol, TextCell(s))
				}
				pending = -1
			}
		case recBoolErr:
			if len(body) >= 8 && body[7] == 0 {
				set(cellRow(body), cellCol(body), boolCell(body[6]))
			}
		}
	}
	return New(rows), nil
}

func cellRow(body []byte) int { return int(le.Uint16(body)) }
func cellCol(body []byte) int { return int(le.Uint16(body[2:])) }

func boolCell(b byte) Cell {
	if b != 0 {
		return TextCell("TRUE")
	}
	return TextCell("FALSE")
}

// numberCell types a numeric value by the number format of its XF record.
func (wb *xlsWorkbook) numberCell(ixfe uint16, v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{}
	}
	if wb.isDateXF(ixfe) {
		if t, err := excelize.ExcelDateToTime(v, wb.date1904); err == nil {
			return DateCell(t)
		}
	}
	return NumberCell(v)
}

func (wb *xlsWorkbook) isDateXF(ixfe uint16) bool {
	if int(ixfe) >= len(wb.xfFormats) {
		return false
	}
	id := wb.xfFormats[ixfe]
	if code, ok := wb.formats[id]; ok {
		return isDateNumFmt(code)
	}
	return isBuiltinDateNumFmt(int(id))
}

// decodeRK expands the compressed RK number encoding.
func decodeRK(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&^3) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

// xlUnicodeString decodes a length-prefixed string held in one record.
func xlUnicodeString(b []byte) (string, error) {
	if len(b) < 3 {
		return "", errTruncated
	}
	cch := int(le.Uint16(b))
	s, _, err := decodeChars(b[3:], cch, b[2]&0x01 != 0)
	return s, err
}

// decodeChars decodes up to cch characters from b and reports how many
// were consumed. Compressed characters are the low bytes of UTF-16.
func decodeChars(b []byte, cch int, high bool) (string, int, error) {
	width := 1
	if high {
		width = 2
	}
	n := min(cch, len(b)/width)
	if n == 0 && cch > 0 {
		return "", 0, errTruncated
	}
	if !high {
		runes := make([]rune, n)
		for i := range n {
			runes[i] = rune(b[i])
		}
		return string(runes), n, nil
	}
	units := make([]uint16, n)
	for i := range n {
		units[i] = le.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units)), n, nil
}

// sstReader walks the shared string table across its CONTINUE records.
type sstReader struct {
	segs [][]byte
	idx  int
	cur  []byte
}

func (r *sstReader) advance() bool {
	for r.idx+1 < len(r.segs) {
		r.idx++
		if r.cur = r.segs[r.idx]; len(r.cur) > 0 {
			return true
		}
	}
	return false
}

func (r *sstReader) take(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if len(r.cur) == 0 && !r.advance() {
			return nil, errTruncated
		}
		k := min(n-len(out), len(r.cur))
		out = append(out, r.cur[:k]...)
		r.cur = r.cur[k:]
	}
	return out, nil
}

func (r *sstReader) skip(n int) error {
	for n > 0 {
		if len(r.cur) == 0 && !r.advance() {
			return errTruncated
		}
		k := min(n, len(r.cur))
		r.cur = r.cur[k:]
		n -= k
	}
	return nil
}

// chars reads cch characters. A string split by a record boundary
// restates its encoding flag at the start of the next segment.
func (r *sstReader) chars(cch int, high bool) (string, error) {
	var b strings.Builder
	for cch > 0 {
		if len(r.cur) == 0 {
			if !r.advance() {
				return "", errTruncated
			}
			high = r.cur[0]&0x01 != 0
			r.cur = r.cur[1:]
			continue
		}
		s, n, err := decodeChars(r.cur, cch, high)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		width := 1
		if high {
			width = 2
		}
		r.cur = r.cur[n*width:]
		cch -= n
	}
	return b.String(), nil
}

func parseSST(segs [][]byte) ([]string, error) {
	r := &sstReader{segs: segs, cur: segs[0]}
	hdr, err := r.take(8)
	if err != nil {
		return nil, err
	}
	unique := int(le.Uint32(hdr[4:]))
	out := make([]string, 0, min(unique, 1<<16))
	for range unique {
		h, err := r.take(3)
		if err != nil {
			return nil, err
		}
		cch, flags := int(le.Uint16(h)), h[2]
		var runs, ext int
		if flags&0x08 != 0 {
			b, err := r.take(2)
			if err != nil {
				return nil, err
			}
			runs = int(le.Uint16(b))
		}
		if flags&0x04 != 0 {
			b, err := r.take(4)
			if err != nil {
				return nil, err
			}
			ext = int(le.Uint32(b))
		}
		s, err := r.chars(cch, flags&0x01 != 0)
		if err != nil {
			return nil, err
		}
		if err := r.skip(4*runs + ext); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
