package sheet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// BIFF record types read from legacy workbooks.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDatemode   = 0x0022
	recContinue   = 0x003C
	recBoundsheet = 0x0085
	recMulRK      = 0x00BD
	recRString    = 0x00D6
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recDimension  = 0x0200
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recBOF        = 0x0809

	biff8 = 0x0600
	biff5 = 0x0500
)

var errTruncated = errors.New("truncated record")

// errorCodes maps BIFF error values to their displayed text.
var errorCodes = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

type cellKey struct{ row, col int }

// xlsSheet is the first worksheet of a BIFF5/BIFF8 workbook, decoded into
// raw typed values. Number formats are ignored, so date cells keep their
// serial and formatted readings keep their stored number.
type xlsSheet struct {
	name      string
	date1904  bool
	cells     map[cellKey]Value
	bounds    Bounds
	hasBounds bool
}

func openXLS(path string) (*xlsSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return nil, fmt.Errorf("could not open %s, is this a valid .xls file? %w", path, err)
	}
	stream, err := workbookStream(doc)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	ws, err := parseWorkbook(stream)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return ws, nil
}

func workbookStream(doc *mscfb.Reader) ([]byte, error) {
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !strings.EqualFold(entry.Name, "Workbook") && !strings.EqualFold(entry.Name, "Book") {
			continue
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, fmt.Errorf("could not read workbook stream: %w", err)
		}
		return buf, nil
	}
	return nil, errors.New("no workbook stream found")
}

// records walks the BIFF records of a stream.
type records struct {
	buf []byte
	pos int
}

func (r *records) next() (code uint16, data []byte, ok bool) {
	if r.pos+4 > len(r.buf) {
		return 0, nil, false
	}
	code = binary.LittleEndian.Uint16(r.buf[r.pos:])
	n := int(binary.LittleEndian.Uint16(r.buf[r.pos+2:]))
	start := r.pos + 4
	if start+n > len(r.buf) {
		return 0, nil, false
	}
	r.pos = start + n
	return code, r.buf[start : start+n], true
}

func (r *records) peek() uint16 {
	if r.pos+2 > len(r.buf) {
		return 0
	}
	return binary.LittleEndian.Uint16(r.buf[r.pos:])
}

type workbook struct {
	version  uint16
	date1904 bool
	sst      []string
	sheet    string
	offset   int
	found    bool
}

func parseWorkbook(stream []byte) (*xlsSheet, error) {
	wb := &workbook{}
	if err := wb.parseGlobals(stream); err != nil {
		return nil, err
	}
	if !wb.found {
		return nil, errors.New("workbook has no worksheets")
	}
	if wb.offset < 0 || wb.offset >= len(stream) {
		return nil, fmt.Errorf("worksheet %q starts outside the workbook stream", wb.sheet)
	}

	ws := &xlsSheet{name: wb.sheet, date1904: wb.date1904, cells: make(map[cellKey]Value)}
	if err := wb.parseSheet(stream[wb.offset:], ws); err != nil {
		return nil, fmt.Errorf("sheet %q: %w", wb.sheet, err)
	}
	return ws, nil
}

func (wb *workbook) parseGlobals(stream []byte) error {
	r := &records{buf: stream}
	code, data, ok := r.next()
	if !ok || code != recBOF || len(data) < 2 {
		return errors.New("missing BOF record, only BIFF5 and later are supported")
	}
	wb.version = binary.LittleEndian.Uint16(data)
	if wb.version != biff8 && wb.version != biff5 {
		return fmt.Errorf("unsupported BIFF version 0x%04X", wb.version)
	}

	for {
		code, data, ok := r.next()
		if !ok {
			return errTruncated
		}
		switch code {
		case recEOF:
			return nil
		case recDatemode:
			if len(data) >= 2 {
				wb.date1904 = binary.LittleEndian.Uint16(data) == 1
			}
		case recBoundsheet:
			if err := wb.boundsheet(data); err != nil {
				return err
			}
		case recSST:
			segments := [][]byte{data}
			for r.peek() == recContinue {
				_, more, _ := r.next()
				segments = append(segments, more)
			}
			sst, err := readSST(segments)
			if err != nil {
				return fmt.Errorf("shared strings: %w", err)
			}
			wb.sst = sst
		}
	}
}

// boundsheet records the first worksheet; chart and macro sheets are skipped.
func (wb *workbook) boundsheet(data []byte) error {
	if wb.found {
		return nil
	}
	if len(data) < 7 {
		return errTruncated
	}
	if data[5] != 0 {
		return nil
	}

	var (
		name string
		err  error
	)
	if wb.version == biff8 {
		name, err = unicodeString(data, 6, 1)
	} else {
		name, err = byteString(data, 6, 1)
	}
	if err != nil {
		return fmt.Errorf("sheet name: %w", err)
	}
	wb.sheet = name
	wb.offset = int(binary.LittleEndian.Uint32(data))
	wb.found = true
	return nil
}

func (wb *workbook) parseSheet(stream []byte, ws *xlsSheet) error {
	r := &records{buf: stream}
	if code, _, ok := r.next(); !ok || code != recBOF {
		return errors.New("missing worksheet BOF record")
	}

	var (
		declared    Bounds
		hasDeclared bool
		pending     *cellKey // formula waiting for its STRING result
		depth       int      // embedded substreams such as charts
	)
	for {
		code, data, ok := r.next()
		if !ok {
			return errTruncated
		}
		switch {
		case code == recBOF:
			depth++
			continue
		case code == recEOF:
			if depth == 0 {
				ws.bounds, ws.hasBounds = ws.usedRange(declared, hasDeclared)
				return nil
			}
			depth--
			continue
		case depth > 0:
			continue
		}

		if code == recString && pending != nil {
			s, err := wb.label(data, 0)
			if err != nil {
				return err
			}
			if v := textOrMissing(s); !v.IsMissing() {
				ws.set(pending.row, pending.col, v)
			}
			pending = nil
			continue
		}
		if code == recDimension {
			declared, hasDeclared = wb.dimension(data)
			continue
		}

		key, v, err := wb.cell(code, data)
		if err != nil {
			return fmt.Errorf("record 0x%04X: %w", code, err)
		}
		switch {
		case code == recMulRK:
			if err := ws.mulRK(data); err != nil {
				return err
			}
		case code == recFormula && v.Kind == String && v.Str == "":
			pending = &key
		case v.Kind != Missing:
			ws.set(key.row, key.col, v)
		}
	}
}

// cell decodes a single-cell record. Record types that carry no value
// return a Missing value.
func (wb *workbook) cell(code uint16, data []byte) (cellKey, Value, error) {
	switch code {
	case recNumber, recRK, recLabelSST, recLabel, recRString, recBoolErr, recFormula:
	default:
		return cellKey{}, Value{}, nil
	}
	if len(data) < 6 {
		return cellKey{}, Value{}, errTruncated
	}
	key := cellKey{
		row: int(binary.LittleEndian.Uint16(data[0:])),
		col: int(binary.LittleEndian.Uint16(data[2:])),
	}

	switch code {
	case recNumber:
		if len(data) < 14 {
			return key, Value{}, errTruncated
		}
		return key, Num(math.Float64frombits(binary.LittleEndian.Uint64(data[6:]))), nil
	case recRK:
		if len(data) < 10 {
			return key, Value{}, errTruncated
		}
		return key, Num(rkValue(binary.LittleEndian.Uint32(data[6:]))), nil
	case recLabelSST:
		if len(data) < 10 {
			return key, Value{}, errTruncated
		}
		i := int(binary.LittleEndian.Uint32(data[6:]))
		if i >= len(wb.sst) {
			return key, Value{}, fmt.Errorf("shared string %d out of range", i)
		}
		return key, textOrMissing(wb.sst[i]), nil
	case recLabel, recRString:
		s, err := wb.label(data, 6)
		if err != nil {
			return key, Value{}, err
		}
		return key, textOrMissing(s), nil
	case recBoolErr:
		if len(data) < 8 {
			return key, Value{}, errTruncated
		}
		if data[7] == 0 {
			return key, Boolean(data[6] != 0), nil
		}
		return key, Text(errorText(data[6])), nil
	default:
		v, err := formulaResult(data)
		return key, v, err
	}
}

// formulaResult decodes the cached result of a FORMULA record. A string
// result is stored in the STRING record that follows, which is signalled by
// an empty Text value.
func formulaResult(data []byte) (Value, error) {
	if len(data) < 14 {
		return Value{}, errTruncated
	}
	res := data[6:14]
	if res[6] != 0xFF || res[7] != 0xFF {
		return Num(math.Float64frombits(binary.LittleEndian.Uint64(res))), nil
	}
	switch res[0] {
	case 0:
		return Text(""), nil
	case 1:
		return Boolean(res[2] != 0), nil
	case 2:
		return Text(errorText(res[2])), nil
	}
	return Value{}, nil
}

func (ws *xlsSheet) mulRK(data []byte) error {
	if len(data) < 6 {
		return errTruncated
	}
	row := int(binary.LittleEndian.Uint16(data[0:]))
	col := int(binary.LittleEndian.Uint16(data[2:]))
	// Each entry is an XF index followed by an RK value; the last two bytes
	// hold the final column.
	for pos := 4; pos+6 <= len(data)-2; pos += 6 {
		ws.set(row, col, Num(rkValue(binary.LittleEndian.Uint32(data[pos+2:]))))
		col++
	}
	return nil
}

func (wb *workbook) label(data []byte, pos int) (string, error) {
	if wb.version == biff8 {
		return unicodeString(data, pos, 2)
	}
	return byteString(data, pos, 2)
}

func (wb *workbook) dimension(data []byte) (Bounds, bool) {
	var firstRow, lastRow, firstCol, lastCol int
	switch {
	case wb.version == biff8 && len(data) >= 12:
		firstRow = int(binary.LittleEndian.Uint32(data[0:]))
		lastRow = int(binary.LittleEndian.Uint32(data[4:]))
		firstCol = int(binary.LittleEndian.Uint16(data[8:]))
		lastCol = int(binary.LittleEndian.Uint16(data[10:]))
	case len(data) >= 8:
		firstRow = int(binary.LittleEndian.Uint16(data[0:]))
		lastRow = int(binary.LittleEndian.Uint16(data[2:]))
		firstCol = int(binary.LittleEndian.Uint16(data[4:]))
		lastCol = int(binary.LittleEndian.Uint16(data[6:]))
	default:
		return Bounds{}, false
	}
	// The stored last row and column are one past the used range.
	if lastRow <= firstRow || lastCol <= firstCol {
		return Bounds{}, false
	}
	return Bounds{FirstRow: firstRow, FirstCol: firstCol, LastRow: lastRow - 1, LastCol: lastCol - 1}, true
}

func (ws *xlsSheet) set(row, col int, v Value) {
	ws.cells[cellKey{row, col}] = v
}

// usedRange mirrors the .xlsx backend: the declared DIMENSION joined with
// the cells actually present.
func (ws *xlsSheet) usedRange(declared Bounds, hasDeclared bool) (Bounds, bool) {
	scanned, hasScanned := Bounds{FirstRow: math.MaxInt, FirstCol: math.MaxInt, LastRow: -1, LastCol: -1}, false
	for k := range ws.cells {
		scanned.FirstRow = min(scanned.FirstRow, k.row)
		scanned.FirstCol = min(scanned.FirstCol, k.col)
		scanned.LastRow = max(scanned.LastRow, k.row)
		scanned.LastCol = max(scanned.LastCol, k.col)
		hasScanned = true
	}

	switch {
	case hasDeclared && hasScanned:
		return union(declared, scanned), true
	case hasDeclared:
		return declared, true
	case hasScanned:
		return scanned, true
	}
	return Bounds{}, false
}

func (ws *xlsSheet) Name() string { return ws.name }

func (ws *xlsSheet) Bounds() (Bounds, bool) { return ws.bounds, ws.hasBounds }

func (ws *xlsSheet) Cell(row, col int) Value {
	return ws.cells[cellKey{row, col}]
}

func (ws *xlsSheet) DateToTime(serial float64) (time.Time, error) {
	return excelize.ExcelDateToTime(serial, ws.date1904)
}

func (ws *xlsSheet) Close() error { return nil }

// rkValue decodes an RK number: a 30-bit integer or the high bits of a
// double, optionally scaled by 1/100.
func rkValue(rk uint32) float64 {
	var f float64
	if rk&0x02 != 0 {
		f = float64(int32(rk) >> 2)
	} else {
		f = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		f /= 100
	}
	return f
}

func errorText(code byte) string {
	if s, ok := errorCodes[code]; ok {
		return s
	}
	return fmt.Sprintf("#ERR%d", code)
}

func textOrMissing(s string) Value {
	if s == "" {
		return Value{}
	}
	return Text(s)
}

// unicodeString decodes a BIFF8 string whose character count is lenSize
// bytes wide. Rich text runs and phonetic data after it are ignored.
func unicodeString(data []byte, pos, lenSize int) (string, error) {
	if pos+lenSize+1 > len(data) {
		return "", errTruncated
	}
	n := int(data[pos])
	if lenSize == 2 {
		n = int(binary.LittleEndian.Uint16(data[pos:]))
	}
	pos += lenSize
	flags := data[pos]
	pos++

	if flags&0x08 != 0 {
		pos += 2
	}
	if flags&0x04 != 0 {
		pos += 4
	}

	units := make([]uint16, n)
	if flags&0x01 != 0 {
		if pos+2*n > len(data) {
			return "", errTruncated
		}
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(data[pos+2*i:])
		}
	} else {
		if pos+n > len(data) {
			return "", errTruncated
		}
		// Compressed strings hold the low byte of each UTF-16 unit.
		for i := range units {
			units[i] = uint16(data[pos+i])
		}
	}
	return string(utf16.Decode(units)), nil
}

// byteString decodes a BIFF5 string in the Windows ANSI code page.
func byteString(data []byte, pos, lenSize int) (string, error) {
	if pos+lenSize > len(data) {
		return "", errTruncated
	}
	n := int(data[pos])
	if lenSize == 2 {
		n = int(binary.LittleEndian.Uint16(data[pos:]))
	}
	pos += lenSize
	if pos+n > len(data) {
		return "", errTruncated
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data[pos : pos+n])
	if err != nil {
		return string(data[pos : pos+n]), nil
	}
	return string(out), nil
}

// sstReader reads the shared string table across its CONTINUE records.
// A string split between records resumes with a fresh option byte.
type sstReader struct {
	segs [][]byte
	seg  int
	pos  int
}

func readSST(segments [][]byte) ([]string, error) {
	r := &sstReader{segs: segments}
	head, err := r.bytes(8)
	if err != nil {
		return nil, err
	}
	unique := int(binary.LittleEndian.Uint32(head[4:]))

	out := make([]string, 0, min(unique, 1<<16))
	for i := 0; i < unique; i++ {
		h, err := r.bytes(3)
		if err != nil {
			return nil, err
		}
		n := int(binary.LittleEndian.Uint16(h))
		flags := h[2]

		var runs, ext int
		if flags&0x08 != 0 {
			b, err := r.bytes(2)
			if err != nil {
				return nil, err
			}
			runs = int(binary.LittleEndian.Uint16(b))
		}
		if flags&0x04 != 0 {
			b, err := r.bytes(4)
			if err != nil {
				return nil, err
			}
			ext = int(binary.LittleEndian.Uint32(b))
		}

		s, err := r.chars(n, flags&0x01 != 0)
		if err != nil {
			return nil, err
		}
		if _, err := r.bytes(4*runs + ext); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *sstReader) bytes(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if r.seg >= len(r.segs) {
			return nil, errTruncated
		}
		seg := r.segs[r.seg]
		if r.pos >= len(seg) {
			r.seg++
			r.pos = 0
			continue
		}
		k := min(n-len(out), len(seg)-r.pos)
		out = append(out, seg[r.pos:r.pos+k]...)
		r.pos += k
	}
	return out, nil
}

func (r *sstReader) chars(n int, wide bool) (string, error) {
	units := make([]uint16, 0, n)
	for len(units) < n {
		if r.seg >= len(r.segs) {
			return "", errTruncated
		}
		if r.pos >= len(r.segs[r.seg]) {
			r.seg++
			if r.seg >= len(r.segs) || len(r.segs[r.seg]) == 0 {
				return "", errTruncated
			}
			wide = r.segs[r.seg][0]&0x01 != 0
			r.pos = 1
			continue
		}

		seg := r.segs[r.seg][r.pos:]
		size := 1
		if wide {
			size = 2
		}
		k := min(n-len(units), len(seg)/size)
		if k == 0 {
			return "", errTruncated
		}
		for i := 0; i < k; i++ {
			if wide {
				units = append(units, binary.LittleEndian.Uint16(seg[2*i:]))
			} else {
				units = append(units, uint16(seg[i]))
			}
		}
		r.pos += k * size
	}
	return string(utf16.Decode(units)), nil
}
