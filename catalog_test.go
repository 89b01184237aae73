package gridview

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `
path: /emp
pageSize: 10
lazyLoad: true
columns:
  - code: elemId
    type: long
    attributes:
      hidden: true
  - code: name
    labels:
      en: Name
      hu: Név
    attributes:
      filter: true
      filterMode: contains
  - code: hired
    type: LocalDate
    attributes:
      datePattern: yyyy.MM.dd
      summary: count
`

func TestParseConfigYAML(t *testing.T) {
	cfg, err := ParseConfig([]byte(yamlConfig), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/emp", cfg.Path)
	assert.Equal(t, 10, cfg.PageSize)
	assert.True(t, cfg.LazyLoad)
	require.Len(t, cfg.Columns, 3)
	assert.True(t, cfg.Columns[0].Attributes.Hidden)
	assert.Equal(t, "Név", cfg.Columns[1].Labels["hu"])
	assert.Equal(t, MatchContains, cfg.Columns[1].Attributes.FilterMode)
	assert.Equal(t, "yyyy.MM.dd", cfg.Columns[2].Attributes.DatePattern)
}

func TestParseConfigJSON(t *testing.T) {
	data := `{"path":"/emp","columns":[{"code":"name","attributes":{"alias":"Link","b":"$execute","method":"GET"}}],
		"gridList":[{"elemId":1,"name":"Anna"}]}`
	cfg, err := ParseConfig([]byte(data), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "$execute", cfg.Columns[0].Attributes.Behavior)
	require.Len(t, cfg.Rows, 1)
	assert.Equal(t, "Anna", cfg.Rows[0]["name"])
}

func TestValidateConfigRejects(t *testing.T) {
	cases := map[string]string{
		"missing path":     `{"columns":[]}`,
		"column sans code": `{"path":"/x","columns":[{"label":"A"}]}`,
		"bad filter mode":  `{"path":"/x","columns":[{"code":"a","attributes":{"filterMode":"regex"}}]}`,
		"bad page size":    `{"path":"/x","pageSize":-1,"columns":[]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateConfig([]byte(doc), FormatJSON)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.NotEmpty(t, verr.Problems)
		})
	}

	err := ValidateConfig([]byte("{"), FormatJSON)
	assert.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr), "syntax errors are not schema errors")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emp.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/emp", cfg.Path)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatOf("a.YAML"))
	assert.Equal(t, FormatJSON, FormatOf("a.json"))
}
