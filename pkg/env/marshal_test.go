package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Token    string        `env:"SAMPLE_TOKEN,required,notEmpty"`
	Prompt   string        `env:"SAMPLE_PROMPT" envDefault:"You are a helpful assistant."`
	Limit    int           `env:"SAMPLE_LIMIT" envDefault:"20"`
	Timeout  time.Duration `env:"SAMPLE_TIMEOUT"`
	Enabled  bool          `env:"SAMPLE_ENABLED"`
	Owners   []int64       `env:"SAMPLE_OWNERS"`
	internal string        `env:"SAMPLE_INTERNAL"`
	NoTag    string
}

func TestMarshalEnv(t *testing.T) {
	cfg := &sampleConfig{
		Limit:    30,
		Timeout:  4 * time.Minute,
		Enabled:  true,
		Owners:   []int64{1, 2},
		internal: "hidden",
		NoTag:    "skipped",
	}

	out, err := MarshalEnv(cfg)
	require.NoError(t, err)

	assert.Equal(t,
		"# SAMPLE_TOKEN=\n"+
			"SAMPLE_PROMPT=You are a helpful assistant.\n"+
			"SAMPLE_LIMIT=30\n"+
			"SAMPLE_TIMEOUT=4m0s\n"+
			"SAMPLE_ENABLED=true\n"+
			"SAMPLE_OWNERS=1,2\n",
		out)
}

func TestMarshalEnv_MultipleStructs(t *testing.T) {
	out, err := MarshalEnv(&sampleConfig{Token: "a"}, sampleConfig{Token: "b"})
	require.NoError(t, err)
	assert.Contains(t, out, "SAMPLE_TOKEN=a\n")
	assert.Contains(t, out, "SAMPLE_TOKEN=b\n")
}

func TestMarshalEnv_RejectsNonStruct(t *testing.T) {
	_, err := MarshalEnv("not a struct")
	assert.Error(t, err)
}
