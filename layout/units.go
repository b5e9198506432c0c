package layout

import (
	"strconv"
	"strings"
)

// 布局内部统一使用毫米；本文件负责把带单位的 DSL 数值换算过来。

// Unit 是 DSL 中书写的原始单位。
type Unit int

const (
	UnitNone Unit = iota // 无单位数值，如倍数
	UnitMM
	UnitCM
	UnitIN
	UnitPT
)

// pt 与 mm 的换算系数。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}}

func (u Unit) String() string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return ""
}

// Length 保留数值与原始单位。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToMM 换算为毫米；无单位数值按毫米处理。
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// ToPT 换算为点。
func (l Length) ToPT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.ToMM() * MmToPt
}

// ParseLength 解析 "12pt"、"20mm"、"1.5in" 这类长度。
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	for _, s := range unitSuffixes {
		if strings.HasSuffix(v, s.suffix) {
			unit = s.unit
			v = strings.TrimSpace(strings.TrimSuffix(v, s.suffix))
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// lengthMM 解析长度并换算为毫米，失败时返回 fallback。
func lengthMM(value string, fallback float64) float64 {
	l, ok := ParseLength(value)
	if !ok {
		return fallback
	}
	return l.ToMM()
}

// parseDimension 支持百分比，相对于 reference。
func parseDimension(value string, reference float64) (float64, bool) {
	v := strings.TrimSpace(value)
	if num, ok := strings.CutSuffix(v, "%"); ok {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, false
		}
		return reference * f / 100, true
	}
	l, ok := ParseLength(v)
	if !ok {
		return 0, false
	}
	return l.ToMM(), true
}

// LineHeightKind 区分倍数行高与绝对行高。
type LineHeightKind int

const (
	LineHeightNormal LineHeightKind = iota // 使用字体自身的行高
	LineHeightFactor
	LineHeightAbsolute
)

// LineHeightSpec 保留作者的原始写法：1.4x 或 18pt。
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight 解析 line-height；无法解析时返回 LineHeightNormal。
func ParseLineHeight(value string) LineHeightSpec {
	v := strings.TrimSpace(value)
	if num, ok := strings.CutSuffix(v, "x"); ok {
		if f, err := strconv.ParseFloat(num, 64); err == nil && f > 0 {
			return LineHeightSpec{Kind: LineHeightFactor, Factor: f}
		}
		return LineHeightSpec{}
	}
	if l, ok := ParseLength(v); ok && l.Value > 0 {
		return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}
	}
	return LineHeightSpec{}
}

// Resolve 返回以毫米计的行高；normal 为字体给出的行高。
func (s LineHeightSpec) Resolve(fontSizeMM, normal float64) float64 {
	switch s.Kind {
	case LineHeightFactor:
		return fontSizeMM * s.Factor
	case LineHeightAbsolute:
		return s.Len.ToMM()
	default:
		if normal > 0 {
			return normal
		}
		return fontSizeMM * defaultLineFactor
	}
}
