package labels

import (
	"fmt"
	"strings"
)

// Row is one shelf label: a CSV line handed to the label printer software.
type Row struct {
	ISBN     string  `db:"isbn"`
	Title    string  `db:"title"`
	Author   string  `db:"author"`
	Location *string `db:"location"`
	Status   string  `db:"status"`
}

func (r Row) record() []string {
	loc := ""
	if r.Location != nil {
		loc = *r.Location
	}
	return []string{r.ISBN, r.Title, r.Author, loc, r.Status}
}

var header = []string{"isbn", "title", "author", "location", "status"}

type Encoding string

const (
	EncodingUTF8  Encoding = "utf-8"
	EncodingCP932 Encoding = "cp932"
)

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf8", "utf-8":
		return EncodingUTF8, nil
	case "cp932", "sjis", "shift_jis", "windows-31j":
		return EncodingCP932, nil
	}
	return "", fmt.Errorf("encoding must be one of %s, %s", EncodingUTF8, EncodingCP932)
}

func (e Encoding) contentType() string {
	if e == EncodingCP932 {
		return "text/csv; charset=Shift_JIS"
	}
	return "text/csv; charset=utf-8"
}

type Options struct {
	Encoding Encoding
	// Header adds a column-name line; label printer templates usually want it off.
	Header bool
}

// File is a rendered export, ready to be written to the response.
type File struct {
	Name        string
	ContentType string
	Rows        int
	Data        []byte
}
