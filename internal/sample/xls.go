package sample

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"unicode/utf16"
)

const (
	sectorSize   = 512
	endOfChain   = 0xFFFFFFFE
	freeSect     = 0xFFFFFFFF
	fatSect      = 0xFFFFFFFD
	noStream     = 0xFFFFFFFF
	maxSSTRecord = 8224

	// XF indexes for the date cell and the readings, and the id of the
	// "0.000" number format. The reader ignores formatting.
	dateXF   = 15
	customXF = 21
	fmtThree = 164
)

// writeXLS saves ex as a BIFF8 workbook in a compound file. Strings go to
// the shared string table, B6 is an RK number with a date format and the
// readings carry a "0.000" custom format, matching what Excel writes for
// a legacy SCADA export.
func writeXLS(path string, ex Export) error {
	stream, err := biffStream(ex)
	if err != nil {
		return err
	}
	doc, err := compoundFile(stream)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("could not save sample %s: %w", path, err)
	}
	return nil
}

type biff struct{ bytes.Buffer }

func (b *biff) record(code uint16, data []byte) {
	var head [4]byte
	binary.LittleEndian.PutUint16(head[0:], code)
	binary.LittleEndian.PutUint16(head[2:], uint16(len(data)))
	b.Write(head[:])
	b.Write(data)
}

func le(values ...interface{}) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

// xlString encodes s as a BIFF8 string with an 8- or 16-bit length.
func xlString(s string, wideLen bool) []byte {
	units := utf16.Encode([]rune(s))
	compressed := true
	for _, u := range units {
		if u > 0xFF {
			compressed = false
			break
		}
	}

	var buf bytes.Buffer
	if wideLen {
		buf.Write(le(uint16(len(units))))
	} else {
		buf.WriteByte(byte(len(units)))
	}
	if compressed {
		buf.WriteByte(0)
		for _, u := range units {
			buf.WriteByte(byte(u))
		}
	} else {
		buf.WriteByte(1)
		for _, u := range units {
			buf.Write(le(u))
		}
	}
	return buf.Bytes()
}

func biffStream(ex Export) ([]byte, error) {
	strs := &sst{index: map[string]uint32{}}

	var sheet biff
	sheet.record(0x0809, le(uint16(0x0600), uint16(0x0010), uint16(0x0DBB), uint16(1996), uint32(0), uint32(6)))
	lastRow, lastCol := 2, max(len(ex.Tags)-1, 0)
	if ex.Date != 0 {
		lastRow, lastCol = 5, max(lastCol, 1)
	}
	if ex.Rows > 0 {
		lastRow = 5 + ex.Rows
	}
	sheet.record(0x0200, le(uint32(0), uint32(lastRow+1), uint16(0), uint16(lastCol+1), uint16(0)))

	if ex.Station != "" {
		sheet.record(0x00FD, le(uint16(0), uint16(0), uint16(0), strs.add(ex.Station)))
	}
	for c, tag := range ex.Tags {
		sheet.record(0x00FD, le(uint16(2), uint16(c), uint16(0), strs.add(tag)))
	}
	if ex.Date != 0 {
		number(&sheet, 5, 1, dateXF, ex.Date)
	}
	for i := 0; i < ex.Rows; i++ {
		row := make([]float64, len(ex.Tags))
		for c := range ex.Tags {
			row[c] = Reading(c, i)
		}
		readings(&sheet, uint16(6+i), row)
	}
	sheet.record(0x000A, nil)

	var globals biff
	globals.record(0x0809, le(uint16(0x0600), uint16(0x0005), uint16(0x0DBB), uint16(1996), uint32(0), uint32(6)))
	date1904 := uint16(0)
	if ex.Date1904 {
		date1904 = 1
	}
	globals.record(0x0022, le(date1904))
	globals.record(0x041E, append(le(uint16(fmtThree)), xlString("0.000", true)...))
	boundsheetAt := globals.Len() + 4
	globals.record(0x0085, append(le(uint32(0), uint8(0), uint8(0)), xlString("Sheet1", false)...))
	if err := strs.write(&globals); err != nil {
		return nil, err
	}
	globals.record(0x000A, nil)

	stream := append(globals.Bytes(), sheet.Bytes()...)
	binary.LittleEndian.PutUint32(stream[boundsheetAt:], uint32(globals.Len()))
	return stream, nil
}

// rk encodes f as an RK value when that is lossless.
func rk(f float64) (uint32, bool) {
	if f == math.Trunc(f) && f >= -(1<<29) && f < 1<<29 {
		return uint32(int32(f))<<2 | 0x02, true
	}
	if n := math.Round(f * 100); n/100 == f && n >= -(1<<29) && n < 1<<29 {
		return uint32(int32(n))<<2 | 0x03, true
	}
	return 0, false
}

func number(b *biff, row, col, xf uint16, f float64) {
	if v, ok := rk(f); ok {
		b.record(0x027E, le(row, col, xf, v))
		return
	}
	b.record(0x0203, le(row, col, xf, f))
}

// readings writes a data row as one MULRK record when every value fits,
// and as separate cells otherwise.
func readings(b *biff, row uint16, values []float64) {
	rks := make([]uint32, len(values))
	for i, f := range values {
		v, ok := rk(f)
		if !ok || len(values) < 2 {
			for c, f := range values {
				number(b, row, uint16(c), customXF, f)
			}
			return
		}
		rks[i] = v
	}
	if len(rks) == 0 {
		return
	}

	data := le(row, uint16(0))
	for _, v := range rks {
		data = append(data, le(uint16(customXF), v)...)
	}
	b.record(0x00BD, append(data, le(uint16(len(values)-1))...))
}

type sst struct {
	strs  []string
	index map[string]uint32
	total uint32
}

func (s *sst) add(str string) uint32 {
	s.total++
	if i, ok := s.index[str]; ok {
		return i
	}
	i := uint32(len(s.strs))
	s.index[str] = i
	s.strs = append(s.strs, str)
	return i
}

// write emits the table, starting a CONTINUE record whenever the next
// string would overflow the current one.
func (s *sst) write(b *biff) error {
	code := uint16(0x00FC)
	cur := le(s.total, uint32(len(s.strs)))
	for _, str := range s.strs {
		enc := xlString(str, true)
		if len(enc) > maxSSTRecord {
			return fmt.Errorf("shared string too long: %d bytes", len(enc))
		}
		if len(cur)+len(enc) > maxSSTRecord {
			b.record(code, cur)
			code, cur = 0x003C, nil
		}
		cur = append(cur, enc...)
	}
	b.record(code, cur)
	return nil
}

// compoundFile wraps a workbook stream in a version 3 compound file with
// no mini stream: FAT sectors first, then the directory, then the stream.
func compoundFile(stream []byte) ([]byte, error) {
	// Streams under 4096 bytes would belong in the mini stream, so short
	// ones are padded past the cutoff.
	length := max(len(stream), 4096)
	size := (length + sectorSize - 1) / sectorSize * sectorSize
	data := make([]byte, size)
	copy(data, stream)

	n := size / sectorSize
	perFAT := sectorSize / 4
	fats := 1
	for fats*perFAT < fats+1+n {
		fats++
	}
	if fats > 109 {
		return nil, fmt.Errorf("workbook stream too large: %d bytes", len(stream))
	}
	dir := fats
	first := fats + 1

	fat := make([]uint32, fats*perFAT)
	for i := range fat {
		fat[i] = freeSect
	}
	for i := 0; i < fats; i++ {
		fat[i] = fatSect
	}
	fat[dir] = endOfChain
	for i := 0; i < n; i++ {
		fat[first+i] = uint32(first + i + 1)
	}
	fat[first+n-1] = endOfChain

	var out bytes.Buffer
	out.Write(header(fats, dir))
	out.Write(le(fat))
	out.Write(directory(length, first))
	out.Write(data)
	return out.Bytes(), nil
}

func header(fats, dir int) []byte {
	h := make([]byte, sectorSize)
	copy(h, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(h[24:], 0x003E)
	binary.LittleEndian.PutUint16(h[26:], 3)
	binary.LittleEndian.PutUint16(h[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(h[30:], 9)
	binary.LittleEndian.PutUint16(h[32:], 6)
	binary.LittleEndian.PutUint32(h[44:], uint32(fats))
	binary.LittleEndian.PutUint32(h[48:], uint32(dir))
	binary.LittleEndian.PutUint32(h[56:], 4096)
	binary.LittleEndian.PutUint32(h[60:], endOfChain)
	binary.LittleEndian.PutUint32(h[68:], endOfChain)
	for i := 0; i < 109; i++ {
		loc := uint32(freeSect)
		if i < fats {
			loc = uint32(i)
		}
		binary.LittleEndian.PutUint32(h[76+4*i:], loc)
	}
	return h
}

func directory(streamSize, start int) []byte {
	d := make([]byte, sectorSize)
	entry(d[0:128], "Root Entry", 5, 1, endOfChain, 0)
	entry(d[128:256], "Workbook", 2, noStream, uint32(start), streamSize)
	for i := 2; i < 4; i++ {
		e := d[i*128 : (i+1)*128]
		binary.LittleEndian.PutUint32(e[68:], noStream)
		binary.LittleEndian.PutUint32(e[72:], noStream)
		binary.LittleEndian.PutUint32(e[76:], noStream)
	}
	return d
}

func entry(e []byte, name string, typ byte, child, start uint32, size int) {
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		binary.LittleEndian.PutUint16(e[2*i:], u)
	}
	binary.LittleEndian.PutUint16(e[64:], uint16(2*(len(units)+1)))
	e[66] = typ
	e[67] = 1
	binary.LittleEndian.PutUint32(e[68:], noStream)
	binary.LittleEndian.PutUint32(e[72:], noStream)
	binary.LittleEndian.PutUint32(e[76:], child)
	binary.LittleEndian.PutUint32(e[116:], start)
	binary.LittleEndian.PutUint32(e[120:], uint32(size))
}
