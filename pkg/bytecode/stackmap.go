package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Verification type tags
const (
	ItemTop               = 0
	ItemInteger           = 1
	ItemFloat             = 2
	ItemDouble            = 3
	ItemLong              = 4
	ItemNull              = 5
	ItemUninitializedThis = 6
	ItemObject            = 7
	ItemUninitialized     = 8
)

// Frame types
const (
	frameSameMax            = 63
	frameSameLocals1MinType = 64
	frameSameLocals1Max     = 127
	frameSameLocals1Ext     = 247
	frameSameExt            = 251
	frameAppendMax          = 254
)

type verificationType struct {
	tag   uint8
	index uint16 // ItemObject
	newAt *Label // ItemUninitialized
}

type stackMapFrame struct {
	frameType uint8
	at        *Label
	locals    []verificationType
	stack     []verificationType
}

type stackMapTable []stackMapFrame

type byteReader struct {
	data []byte
	pos  int
	err  error
}

func (r *byteReader) u1() uint8 {
	if r.err != nil || r.pos+1 > len(r.data) {
		r.err = fmt.Errorf("truncated at %d", r.pos)
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *byteReader) u2() uint16 {
	if r.err != nil || r.pos+2 > len(r.data) {
		r.err = fmt.Errorf("truncated at %d", r.pos)
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func decodeStackMap(data []byte, labelAt labelResolver) (table, error) {
	r := &byteReader{data: data}
	n := int(r.u2())
	t := make(stackMapTable, 0, n)
	offset := -1
	for i := 0; i < n && r.err == nil; i++ {
		f := stackMapFrame{frameType: r.u1()}
		var delta int
		switch ft := f.frameType; {
		case ft <= frameSameMax:
			delta = int(ft)
		case ft <= frameSameLocals1Max:
			delta = int(ft - frameSameLocals1MinType)
			f.stack = []verificationType{readVerificationType(r, labelAt)}
		case ft < frameSameLocals1Ext:
			return nil, fmt.Errorf("reserved frame type %d", ft)
		case ft == frameSameLocals1Ext:
			delta = int(r.u2())
			f.stack = []verificationType{readVerificationType(r, labelAt)}
		case ft <= frameSameExt:
			delta = int(r.u2())
		case ft <= frameAppendMax:
			delta = int(r.u2())
			for k := 0; k < int(ft)-frameSameExt; k++ {
				f.locals = append(f.locals, readVerificationType(r, labelAt))
			}
		default:
			delta = int(r.u2())
			nl := int(r.u2())
			for k := 0; k < nl && r.err == nil; k++ {
				f.locals = append(f.locals, readVerificationType(r, labelAt))
			}
			ns := int(r.u2())
			for k := 0; k < ns && r.err == nil; k++ {
				f.stack = append(f.stack, readVerificationType(r, labelAt))
			}
		}
		if r.err != nil {
			break
		}
		offset += delta + 1
		l, err := labelAt(offset)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		f.at = l
		t = append(t, f)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes", len(data)-r.pos)
	}
	return t, nil
}

func readVerificationType(r *byteReader, labelAt labelResolver) verificationType {
	v := verificationType{tag: r.u1()}
	switch v.tag {
	case ItemObject:
		v.index = r.u2()
	case ItemUninitialized:
		off := int(r.u2())
		if r.err != nil {
			return v
		}
		l, err := labelAt(off)
		if err != nil {
			r.err = fmt.Errorf("uninitialized type: %w", err)
			return v
		}
		v.newAt = l
	default:
		if v.tag > ItemUninitialized && r.err == nil {
			r.err = fmt.Errorf("unknown verification type tag %d", v.tag)
		}
	}
	return v
}

func appendVerificationTypes(out []byte, types []verificationType) []byte {
	for _, v := range types {
		out = append(out, v.tag)
		switch v.tag {
		case ItemObject:
			out = binary.BigEndian.AppendUint16(out, v.index)
		case ItemUninitialized:
			out = binary.BigEndian.AppendUint16(out, uint16(v.newAt.offset))
		}
	}
	return out
}

// encode keeps each frame's kind and only widens the compact forms when the
// new offset delta no longer fits in the frame type byte.
func (t stackMapTable) encode() ([]byte, error) {
	out := binary.BigEndian.AppendUint16(nil, uint16(len(t)))
	prev := -1
	for i, f := range t {
		delta := f.at.offset - prev - 1
		if delta < 0 {
			return nil, fmt.Errorf("frame %d: offsets out of order", i)
		}
		prev = f.at.offset
		switch ft := f.frameType; {
		case ft <= frameSameMax:
			if delta <= frameSameMax {
				out = append(out, uint8(delta))
			} else {
				out = append(out, frameSameExt)
				out = binary.BigEndian.AppendUint16(out, uint16(delta))
			}
		case ft <= frameSameLocals1Max:
			if delta <= frameSameMax {
				out = append(out, uint8(frameSameLocals1MinType+delta))
			} else {
				out = append(out, frameSameLocals1Ext)
				out = binary.BigEndian.AppendUint16(out, uint16(delta))
			}
			out = appendVerificationTypes(out, f.stack)
		case ft == frameSameLocals1Ext:
			out = append(out, ft)
			out = binary.BigEndian.AppendUint16(out, uint16(delta))
			out = appendVerificationTypes(out, f.stack)
		case ft <= frameAppendMax:
			out = append(out, ft)
			out = binary.BigEndian.AppendUint16(out, uint16(delta))
			out = appendVerificationTypes(out, f.locals)
		default:
			out = append(out, ft)
			out = binary.BigEndian.AppendUint16(out, uint16(delta))
			out = binary.BigEndian.AppendUint16(out, uint16(len(f.locals)))
			out = appendVerificationTypes(out, f.locals)
			out = binary.BigEndian.AppendUint16(out, uint16(len(f.stack)))
			out = appendVerificationTypes(out, f.stack)
		}
	}
	return out, nil
}
