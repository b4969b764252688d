package normalizer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"CekNomor/pkg/errors"
)

// 标识列的表头别名，大小写不敏感
var identifierAliases = map[string]bool{
	"nama":       true,
	"name":       true,
	"identifier": true,
	"username":   true,
}

const phoneColumn = "phone_number"

// ReadLines 把手工输入的行转换为 RawInput，空行跳过
func ReadLines(lines []string) []RawInput {
	inputs := make([]RawInput, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		inputs = append(inputs, ParseLine(line))
	}
	return inputs
}

// ReadUpload 解析上传文件，按扩展名分派。maxRows 超限返回 TooManyNumbers。
func ReadUpload(filename string, data []byte, maxRows int) ([]RawInput, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return readCSV(data, maxRows)
	case ".xls", ".xlsx":
		return readXLSX(data, maxRows)
	default:
		return nil, fmt.Errorf("unsupported file extension %q: %w", ext, errors.InputError)
	}
}

func readCSV(data []byte, maxRows int) ([]RawInput, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // 脏数据行自己处理

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", errors.InputError)
	}

	phoneIdx, identIdx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var inputs []RawInput
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", errors.InputError)
		}

		in, ok := rowToInput(record, phoneIdx, identIdx)
		if !ok {
			continue
		}
		inputs = append(inputs, in)

		if len(inputs) > maxRows {
			return nil, fmt.Errorf("%w", errors.TooManyNumbers)
		}
	}

	return inputs, nil
}

func readXLSX(data []byte, maxRows int) ([]RawInput, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", errors.InputError)
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets: %w", errors.InputError)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty: %w", errors.InputError)
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		header[i] = cell.String()
	}

	phoneIdx, identIdx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var inputs []RawInput
	for _, row := range sheet.Rows[1:] {
		record := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			record[i] = cell.String()
		}

		in, ok := rowToInput(record, phoneIdx, identIdx)
		if !ok {
			continue
		}
		inputs = append(inputs, in)

		if len(inputs) > maxRows {
			return nil, fmt.Errorf("%w", errors.TooManyNumbers)
		}
	}

	return inputs, nil
}

// resolveColumns 定位 phone_number 列与可选的标识列
func resolveColumns(header []string) (phoneIdx, identIdx int, err error) {
	phoneIdx, identIdx = -1, -1
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		switch {
		case name == phoneColumn:
			phoneIdx = i
		case identifierAliases[name] && identIdx == -1:
			identIdx = i
		}
	}

	if phoneIdx == -1 {
		return -1, -1, fmt.Errorf("missing %q column: %w", phoneColumn, errors.InputError)
	}
	return phoneIdx, identIdx, nil
}

func rowToInput(record []string, phoneIdx, identIdx int) (RawInput, bool) {
	if phoneIdx >= len(record) {
		return RawInput{}, false
	}

	phone := strings.TrimSpace(record[phoneIdx])
	if phone == "" {
		return RawInput{}, false
	}

	in := RawInput{Phone: phone}
	if identIdx >= 0 && identIdx < len(record) {
		in.Identifier = strings.TrimSpace(record[identIdx])
	}
	return in, true
}
