package docvault_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/docvault"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  docvault.Kind
	}{
		{"local", docvault.KindLocal},
		{"ephemeral-local", docvault.KindLocal},
		{"disk", docvault.KindDisk},
		{"persistent-mounted", docvault.KindDisk},
		{"s3", docvault.KindS3},
		{"remote-object-store", docvault.KindS3},
		{"  S3 ", docvault.KindS3},
		{"DISK", docvault.KindDisk},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := docvault.ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}

	for _, input := range []string{"", "gcs", "memory"} {
		t.Run("invalid "+input, func(t *testing.T) {
			_, err := docvault.ParseKind(input)
			assert.ErrorIs(t, err, docvault.ErrConfiguration)
		})
	}

	assert.False(t, docvault.Kind("ftp").IsValid())
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"report.docx", true},
		{"q3 report.docx", true},
		{"résumé.docx", true},
		{"a", true},
		{strings.Repeat("a", docvault.MaxNameLength), true},
		{strings.Repeat("a", docvault.MaxNameLength+1), false},
		{"", false},
		{".hidden", false},
		{docvault.TemplateName, false},
		{"a..b", false},
		{"dir/report.docx", false},
		{`dir\report.docx`, false},
		{"report?.docx", false},
		{"report#1.docx", false},
		{"100%.docx", false},
		{"tab\there.docx", false},
		{"new\nline.docx", false},
		{"\xff\xfe.docx", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.name), func(t *testing.T) {
			assert.Equal(t, tt.valid, docvault.IsValidName(tt.name))
		})
	}
}

func TestIsReservedName(t *testing.T) {
	assert.True(t, docvault.IsReservedName(docvault.TemplateName))
	assert.True(t, docvault.IsReservedName(".t1234"))
	assert.False(t, docvault.IsReservedName("report.docx"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, docvault.DocxContentType, docvault.ContentTypeFor("report.docx"))
	assert.Equal(t, docvault.DocxContentType, docvault.ContentTypeFor("REPORT.DOCX"))
	assert.Equal(t, "application/pdf", docvault.ContentTypeFor("report.pdf"))
	assert.Equal(t, "application/octet-stream", docvault.ContentTypeFor("README"))
	assert.Equal(t, "application/octet-stream", docvault.ContentTypeFor("data.unknownext"))
}

func TestTables_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tables  docvault.Tables
		wantErr bool
	}{
		{"valid", docvault.Tables{Documents: "docvault_documents"}, false},
		{"leading underscore", docvault.Tables{Documents: "_docs"}, false},
		{"empty", docvault.Tables{}, true},
		{"uppercase", docvault.Tables{Documents: "Documents"}, true},
		{"leading digit", docvault.Tables{Documents: "1docs"}, true},
		{"injection", docvault.Tables{Documents: "docs; DROP TABLE users"}, true},
		{"too long", docvault.Tables{Documents: strings.Repeat("a", 64)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tables.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, docvault.ErrConfiguration)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCursor(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, name := range []string{"a.docx", "q3 report.docx", "résumé.docx"} {
			got, err := docvault.DecodeCursor(docvault.EncodeCursor(name))
			require.NoError(t, err)
			assert.Equal(t, name, got)
		}
	})

	t.Run("url safe", func(t *testing.T) {
		assert.NotContains(t, docvault.EncodeCursor("??>>"), "/")
		assert.NotContains(t, docvault.EncodeCursor("??>>"), "+")
	})

	t.Run("empty cursor", func(t *testing.T) {
		got, err := docvault.DecodeCursor("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := docvault.DecodeCursor("not base64!")
		assert.ErrorIs(t, err, docvault.ErrInvalidInput)
	})
}

func TestEscapeLikePattern(t *testing.T) {
	assert.Equal(t, "report", docvault.EscapeLikePattern("report"))
	assert.Equal(t, `100\%`, docvault.EscapeLikePattern("100%"))
	assert.Equal(t, `q3\_report`, docvault.EscapeLikePattern("q3_report"))
	assert.Equal(t, `a\\b`, docvault.EscapeLikePattern(`a\b`))
}

func TestURLBuilder(t *testing.T) {
	t.Run("escapes names", func(t *testing.T) {
		b, err := docvault.NewURLBuilder("https://docs.example.com/")
		require.NoError(t, err)
		assert.Equal(t, "https://docs.example.com/documents/q3%20report.docx", b.URL("q3 report.docx"))
	})

	t.Run("keeps base path", func(t *testing.T) {
		b, err := docvault.NewURLBuilder("http://localhost:5708/vault")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:5708/vault/documents/a.docx", b.URL("a.docx"))
	})

	t.Run("rejects relative base", func(t *testing.T) {
		for _, base := range []string{"", "/documents", "docs.example.com", "s3://bucket"} {
			_, err := docvault.NewURLBuilder(base)
			assert.ErrorIs(t, err, docvault.ErrConfiguration, base)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, docvault.IsRetryable(docvault.ErrTransient))
	assert.True(t, docvault.IsRetryable(fmt.Errorf("put: %w", docvault.ErrTransient)))
	assert.False(t, docvault.IsRetryable(docvault.ErrNotFound))
	assert.False(t, docvault.IsRetryable(errors.New("boom")))
	assert.False(t, docvault.IsRetryable(nil))
}
