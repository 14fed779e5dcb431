package ocrspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/src/core/loader"
)

func TestRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "secret", r.FormValue("apikey"))
		assert.Equal(t, "eng", r.FormValue("language"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "scan.pdf", header.Filename)

		w.Write([]byte(`{
			"ParsedResults":[
				{"ParsedText":"first page\r\n","FileParseExitCode":1},
				{"ParsedText":"second page","FileParseExitCode":1}
			],
			"OCRExitCode":1,
			"IsErroredOnProcessing":false
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "", srv.Client())
	pages, err := c.Recognize(context.Background(), "scan.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, []loader.Page{
		{Number: 1, Text: "first page\r\n"},
		{Number: 2, Text: "second page"},
	}, pages)
}

func TestRecognizeProcessingErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "error list",
			body: `{"OCRExitCode":99,"IsErroredOnProcessing":true,"ErrorMessage":["File failed validation","Invalid file"]}`,
			want: "File failed validation; Invalid file",
		},
		{
			name: "error string",
			body: `{"OCRExitCode":99,"IsErroredOnProcessing":true,"ErrorMessage":"Timed out waiting for results"}`,
			want: "Timed out waiting for results",
		},
		{
			name: "no message",
			body: `{"OCRExitCode":4,"IsErroredOnProcessing":true}`,
			want: "exit code 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "k", "eng", nil).Recognize(context.Background(), "scan.pdf", []byte("x"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
