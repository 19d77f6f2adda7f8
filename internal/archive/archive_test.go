package archive

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func TestWriteZip(t *testing.T) {
	files := []File{
		{Name: "flight.csv", Data: []byte("a,b\n1,2\n")},
		{Name: "flight.csv", Data: []byte("second")},
		{Name: "flight-2.csv", Data: []byte("named like a duplicate")},
		{Name: "flight.csv", Data: []byte("third")},
		{Name: "", Data: []byte("anonymous")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, files))

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	contents := map[string]string{}
	for _, entry := range reader.File {
		names = append(names, entry.Name)
		rc, err := entry.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[entry.Name] = string(data)
	}

	require.Equal(t, []string{"flight.csv", "flight-2.csv", "flight-2-2.csv", "flight-3.csv", "file"}, names)
	require.Equal(t, "second", contents["flight-2.csv"])
	require.Equal(t, "named like a duplicate", contents["flight-2-2.csv"])
	require.Equal(t, "third", contents["flight-3.csv"])
}

func TestWriteZipEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, nil))

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Empty(t, reader.File)
}
