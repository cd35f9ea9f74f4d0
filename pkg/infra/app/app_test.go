package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type demoOptions struct {
	Demo struct {
		Name  string `mapstructure:"name"`
		Count int    `mapstructure:"count"`
	} `mapstructure:"demo"`
	completed bool
	invalid   bool
}

func newDemoOptions() *demoOptions {
	o := &demoOptions{}
	o.Demo.Name = "default"
	o.Demo.Count = 1
	return o
}

func (o *demoOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Demo.Name, "demo.name", o.Demo.Name, "demo name")
	fs.IntVar(&o.Demo.Count, "demo.count", o.Demo.Count, "demo count")
}

func (o *demoOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *demoOptions) Validate() error {
	if o.invalid {
		return errors.New("invalid")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApp_ConfigFileOverridesDefaults(t *testing.T) {
	opts := newDemoOptions()
	path := writeConfig(t, "demo:\n  name: from-file\n  count: 7\n")

	a := NewApp(WithName("demo-app"), WithOptions(opts), WithNoVersion(), WithSilence())
	a.Command().SetArgs([]string{"--config", path})
	require.NoError(t, a.Command().Execute())

	assert.Equal(t, "from-file", opts.Demo.Name)
	assert.Equal(t, 7, opts.Demo.Count)
	assert.True(t, opts.completed)
}

func TestApp_EnvOverridesFile(t *testing.T) {
	opts := newDemoOptions()
	path := writeConfig(t, "demo:\n  name: from-file\n")
	t.Setenv("DEMO_APP_DEMO_NAME", "from-env")

	a := NewApp(WithName("demo-app"), WithOptions(opts), WithNoVersion(), WithSilence())
	a.Command().SetArgs([]string{"--config", path})
	require.NoError(t, a.Command().Execute())

	assert.Equal(t, "from-env", opts.Demo.Name)
}

func TestApp_FlagOverridesEverything(t *testing.T) {
	opts := newDemoOptions()
	path := writeConfig(t, "demo:\n  name: from-file\n  count: 3\n")
	t.Setenv("DEMO_APP_DEMO_NAME", "from-env")

	a := NewApp(WithName("demo-app"), WithOptions(opts), WithNoVersion(), WithSilence())
	a.Command().SetArgs([]string{"--config", path, "--demo.name", "from-flag"})
	require.NoError(t, a.Command().Execute())

	assert.Equal(t, "from-flag", opts.Demo.Name)
	assert.Equal(t, 3, opts.Demo.Count)
}

func TestApp_ExpandsEnvReferences(t *testing.T) {
	opts := newDemoOptions()
	t.Setenv("DEMO_SECRET_NAME", "expanded")
	path := writeConfig(t, "demo:\n  name: ${DEMO_SECRET_NAME}\n")

	a := NewApp(WithName("demo-app"), WithOptions(opts), WithNoVersion(), WithSilence())
	a.Command().SetArgs([]string{"--config", path})
	require.NoError(t, a.Command().Execute())

	assert.Equal(t, "expanded", opts.Demo.Name)
}

func TestApp_ValidateErrorStopsRun(t *testing.T) {
	opts := newDemoOptions()
	opts.invalid = true
	ran := false

	a := NewApp(
		WithName("demo-app"),
		WithOptions(opts),
		WithNoVersion(),
		WithNoConfig(),
		WithSilence(),
		WithRunFunc(func() error {
			ran = true
			return nil
		}),
	)
	a.Command().SetArgs([]string{})
	require.Error(t, a.Command().Execute())
	assert.False(t, ran)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "LOS_INSIGHT", EnvPrefix("los-insight"))
}
