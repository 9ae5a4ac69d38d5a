package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "adreview"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage adreview configuration.

Running bare 'adreview config' is the same as 'adreview config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# adreview configuration
# See: adreview config show (for effective values and sources)

# State/data directory (default: ~/.config/adreview)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/adreview/adreview.db)
# db_path: {{ .DBPath }}

# Dashboard port for 'adreview serve'
port: {{ .Port }}

# Analysis backend: mock, dify, or anthropic
provider: "{{ .Provider }}"

dify:
  # Workflow API base URL
  api_url: "{{ .DifyAPIURL }}"
  # Prefer ADREVIEW_DIFY_API_KEY over storing the key here
  api_key: ""
  user: "{{ .DifyUser }}"

anthropic:
  # Falls back to ANTHROPIC_API_KEY when empty
  api_key: ""
  model: "{{ .AnthropicModel }}"

analysis:
  # Give up on the backend after this long and save a fallback report
  timeout: "{{ .AnalysisTimeout }}"

sessions:
  # Idle checklist sessions are discarded after this long
  ttl: "{{ .SessionTTL }}"

# Identity recorded on reports created from the CLI
user:
  email: "{{ .UserEmail }}"
  name: "{{ .UserName }}"
`

type configTemplateData struct {
	StateDir        string
	DBPath          string
	Port            int
	Provider        string
	DifyAPIURL      string
	DifyUser        string
	AnthropicModel  string
	AnalysisTimeout string
	SessionTTL      string
	UserEmail       string
	UserName        string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:        viper.GetString("state_dir"),
		DBPath:          viper.GetString("db_path"),
		Port:            viper.GetInt("port"),
		Provider:        viper.GetString("provider"),
		DifyAPIURL:      viper.GetString("dify.api_url"),
		DifyUser:        viper.GetString("dify.user"),
		AnthropicModel:  viper.GetString("anthropic.model"),
		AnalysisTimeout: viper.GetDuration("analysis.timeout").String(),
		SessionTTL:      viper.GetDuration("sessions.ttl").String(),
		UserEmail:       viper.GetString("user.email"),
		UserName:        viper.GetString("user.name"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// envKeyReplacer maps nested keys like dify.api_key onto ADREVIEW_DIFY_API_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	Secret bool
}

// EnvVar is the environment variable that overrides the key.
func (k configKeyInfo) EnvVar() string {
	return "ADREVIEW_" + strings.ToUpper(envKeyReplacer.Replace(k.Key))
}

var configKeys = []configKeyInfo{
	{Key: "state_dir"},
	{Key: "db_path"},
	{Key: "port"},
	{Key: "provider"},
	{Key: "dify.api_url"},
	{Key: "dify.api_key", Secret: true},
	{Key: "dify.user"},
	{Key: "anthropic.api_key", Secret: true},
	{Key: "anthropic.model"},
	{Key: "analysis.timeout"},
	{Key: "sessions.ttl"},
	{Key: "user.email"},
	{Key: "user.name"},
}

// maskSecret keeps only the last four characters of a credential.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	inFile := readConfigFileKeys(cfgPath)
	table := ui.Table([]string{"Key", "Value", "Source"})
	for _, k := range configKeys {
		_ = table.Append([]string{k.Key, k.display(), k.source(inFile)})
	}
	return table.Render()
}

// display renders the effective value, masking credentials.
func (k configKeyInfo) display() string {
	if k.Secret {
		return maskSecret(viper.GetString(k.Key))
	}
	return fmt.Sprint(viper.Get(k.Key))
}

// source reports whether the value comes from the environment, the config
// file, or the built-in default. The environment wins over the file.
func (k configKeyInfo) source(inFile map[string]bool) string {
	if _, ok := os.LookupEnv(k.EnvVar()); ok {
		return "env " + k.EnvVar()
	}
	if inFile[k.Key] {
		return "file"
	}
	return "default"
}

// readConfigFileKeys returns the dotted keys set in the YAML file at path.
// A missing or unparsable file yields an empty set.
func readConfigFileKeys(path string) map[string]bool {
	keys := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return keys
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return keys
	}
	collectKeys("", parsed, keys)
	return keys
}

func collectKeys(prefix string, m map[string]any, keys map[string]bool) {
	for name, val := range m {
		if prefix != "" {
			name = prefix + "." + name
		}
		if nested, ok := val.(map[string]any); ok {
			collectKeys(name, nested, keys)
			continue
		}
		keys[name] = true
	}
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'adreview config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
