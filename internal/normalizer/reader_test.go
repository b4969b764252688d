package normalizer

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"CekNomor/pkg/errors"
)

func TestReadLines(t *testing.T) {
	inputs := ReadLines([]string{
		"budi 081234567890",
		"",
		"   ",
		"081234567891",
	})

	require.Len(t, inputs, 2)
	assert.Equal(t, RawInput{Identifier: "budi", Phone: "081234567890"}, inputs[0])
	assert.Equal(t, RawInput{Phone: "081234567891"}, inputs[1])
}

func TestReadUploadCSV(t *testing.T) {
	data := []byte("nama,phone_number\nbudi,081234567890\n,081234567891\nsiti,\n")

	inputs, err := ReadUpload("numbers.csv", data, 100)
	require.NoError(t, err)

	// 空号码行跳过
	require.Len(t, inputs, 2)
	assert.Equal(t, RawInput{Identifier: "budi", Phone: "081234567890"}, inputs[0])
	assert.Equal(t, RawInput{Phone: "081234567891"}, inputs[1])
}

func TestReadUploadCSVHeaderAliases(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"nama", "nama,phone_number"},
		{"name", "name,phone_number"},
		{"identifier", "identifier,phone_number"},
		{"username", "username,phone_number"},
		{"case insensitive", "Name,Phone_Number"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := []byte(tc.header + "\nbudi,081234567890\n")
			inputs, err := ReadUpload("n.csv", data, 10)
			require.NoError(t, err)
			require.Len(t, inputs, 1)
			assert.Equal(t, "budi", inputs[0].Identifier)
			assert.Equal(t, "081234567890", inputs[0].Phone)
		})
	}
}

func TestReadUploadCSVWithoutIdentifierColumn(t *testing.T) {
	data := []byte("phone_number\n081234567890\n")

	inputs, err := ReadUpload("n.csv", data, 10)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Empty(t, inputs[0].Identifier)
}

func TestReadUploadCSVMissingPhoneColumn(t *testing.T) {
	data := []byte("nama,telepon\nbudi,081234567890\n")

	_, err := ReadUpload("n.csv", data, 10)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.InputError))
}

func TestReadUploadCSVRaggedRows(t *testing.T) {
	data := []byte("nama,phone_number\nbudi,081234567890,extra\nshort\n,081234567891\n")

	inputs, err := ReadUpload("n.csv", data, 10)
	require.NoError(t, err)

	// 短行缺 phone 列则跳过，多余列忽略
	require.Len(t, inputs, 2)
	assert.Equal(t, "081234567890", inputs[0].Phone)
	assert.Equal(t, "081234567891", inputs[1].Phone)
}

func TestReadUploadCSVTooManyRows(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("phone_number\n")
	buf.WriteString("081234567890\n")
	buf.WriteString("081234567891\n")
	buf.WriteString("081234567892\n")

	_, err := ReadUpload("n.csv", buf.Bytes(), 2)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.TooManyNumbers))
}

func TestReadUploadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().Value = "nama"
	header.AddCell().Value = "phone_number"

	row := sheet.AddRow()
	row.AddCell().Value = "budi"
	row.AddCell().Value = "081234567890"

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	inputs, err := ReadUpload("numbers.xlsx", buf.Bytes(), 10)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, RawInput{Identifier: "budi", Phone: "081234567890"}, inputs[0])
}

func TestReadUploadUnsupportedExtension(t *testing.T) {
	_, err := ReadUpload("numbers.txt", []byte("081234567890"), 10)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.InputError))
}
