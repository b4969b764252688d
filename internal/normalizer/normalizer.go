package normalizer

import (
	"fmt"
	"strings"

	"CekNomor/pkg/errors"
)

// RawInput 解析前的一条输入：可选标识 + 原始号码
type RawInput struct {
	Identifier string
	Phone      string
}

// Normalized 规范化后的号码，Original 保留用户原始输入用于回显
type Normalized struct {
	Phone      string
	Identifier string
	Original   string
}

// NormalizeNumber 规范化单个号码。
// 规则：去掉除前导 + 以外的非数字字符；0 / 62 / +62 前缀统一重写为 +62；
// 其他带 + 的国际号码保持原样；规范化后数字位数必须在 [8,15] 内。
// 幂等：已是规范形态的号码原样返回。
func NormalizeNumber(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w", errors.InvalidNumber)
	}

	hasPlus := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	ds := digits.String()

	var canonical string
	switch {
	case hasPlus && strings.HasPrefix(ds, "62"):
		canonical = "+" + ds
	case strings.HasPrefix(ds, "0"):
		canonical = "+62" + ds[1:]
	case strings.HasPrefix(ds, "62"):
		canonical = "+" + ds
	case hasPlus:
		// 非印尼的国际号码，保持国家码
		canonical = "+" + ds
	default:
		return "", fmt.Errorf("%w", errors.InvalidNumber)
	}

	n := len(canonical) - 1 // 去掉 +
	if n < 8 || n > 15 {
		return "", fmt.Errorf("%w", errors.InvalidNumber)
	}

	return canonical, nil
}

// ParseLine 解析 "<identifier?> <phone>" 形式的一行，最后一个空白分隔段视作号码
func ParseLine(line string) RawInput {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return RawInput{}
	}
	if len(fields) == 1 {
		return RawInput{Phone: fields[0]}
	}
	return RawInput{
		Identifier: strings.Join(fields[:len(fields)-1], " "),
		Phone:      fields[len(fields)-1],
	}
}

// Result 规范化 + 去重的整体输出。Invalid 保留位置信息，逐条失败不影响批次。
type Result struct {
	Numbers           []Normalized
	Invalid           []RawInput
	DuplicatesRemoved int
}

// Normalize 规范化并按规范串精确去重，保留首见顺序与首见标识
func Normalize(inputs []RawInput) Result {
	var res Result
	seen := make(map[string]bool, len(inputs))

	for _, in := range inputs {
		canonical, err := NormalizeNumber(in.Phone)
		if err != nil {
			res.Invalid = append(res.Invalid, in)
			continue
		}

		if seen[canonical] {
			res.DuplicatesRemoved++
			continue
		}
		seen[canonical] = true

		res.Numbers = append(res.Numbers, Normalized{
			Phone:      canonical,
			Identifier: in.Identifier,
			Original:   in.Phone,
		})
	}

	return res
}
