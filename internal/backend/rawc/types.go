package rawc

import (
	"io"
	"strconv"

	"rawc/internal/diag"
	"rawc/internal/dtype"
)

// CType returns the C spelling of t.
func CType(t dtype.DataType) (string, error) {
	lanes := int(t.Lanes)
	switch t.Code {
	case dtype.CodeHandle:
		if lanes != 1 {
			return "", unsupported(t, "handles do not support vector types")
		}
		return "void*", nil
	case dtype.CodeVoid:
		return "void", nil
	}
	if t.IsBool() {
		return "bool", nil
	}

	var base string
	switch t.Code {
	case dtype.CodeFloat:
		switch t.Bits {
		case 16:
			base = "half"
		case 32:
			base = "float"
		case 64:
			base = "double"
		default:
			return "", unsupported(t, "float width")
		}
	case dtype.CodeInt, dtype.CodeUInt, dtype.CodeBool:
		// bool vectors are one-bit unsigned lanes.
		if t.Code == dtype.CodeBool && t.Bits != 1 {
			return "", unsupported(t, "bool width")
		}
		if t.Code != dtype.CodeInt {
			base = "u"
		}
		switch t.Bits {
		case 8:
			base += "int8_t"
		case 16:
			base += "int16_t"
		case 1, 32:
			base += "int32_t"
		case 64:
			base += "int64_t"
		default:
			return "", unsupported(t, "integer width")
		}
	default:
		return "", unsupported(t, "type code")
	}

	switch {
	case lanes == 1:
		return base, nil
	case lanes >= 2 && lanes <= dtype.MaxLanes:
		return base + strconv.Itoa(lanes), nil
	default:
		return "", unsupported(t, "lane count")
	}
}

// PrintType writes the C spelling of t to w. Nothing is written on failure.
func PrintType(w io.Writer, t dtype.DataType) error {
	s, err := CType(t)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

func unsupported(t dtype.DataType, what string) error {
	return diag.Errorf(diag.UnsupportedType, "cannot convert type %s (code=%s bits=%d lanes=%d) to C type: unsupported %s",
		t, t.Code, t.Bits, t.Lanes, what)
}
