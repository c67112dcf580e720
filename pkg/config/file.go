package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// WriteConfig writes the configuration to the default file.
func (c *Config) WriteConfig() error {
	return writeConfig(c, c.ConfigPath())
}

// writeConfig writes the configuration to the given file.
func writeConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(newConfigFile(cfg)), 0o644) // nolint: errcheck, gosec
}

// newConfigFile returns the config file template rendered for cfg.
func newConfigFile(cfg *Config) string {
	tmpl := template.Must(template.New("config").Funcs(template.FuncMap{
		"join": func(ss []string) string {
			out := make([]string, len(ss))
			for i, s := range ss {
				out[i] = fmt.Sprintf("%q", s)
			}
			return strings.Join(out, ", ")
		},
	}).Parse(configFileTmpl))
	var b strings.Builder
	if err := tmpl.Execute(&b, cfg); err != nil {
		panic(err)
	}
	return b.String()
}

const configFileTmpl = `# Sample restfulgit config.

# The name of the server shown in the repository listing.
name: "{{ .Name }}"

# The path to the directory containing the served repositories.
repo_path: "{{ .RepoPath }}"

# The HTTP server configuration.
http:
  # The address on which the HTTP server will listen.
  listen_addr: "{{ .HTTP.ListenAddr }}"

  # The path to the TLS private key.
  tls_key_path: "{{ .HTTP.TLSKeyPath }}"

  # The path to the TLS certificate.
  tls_cert_path: "{{ .HTTP.TLSCertPath }}"

  # The public URL of the HTTP server.
  # This is the URL used in links inside JSON responses.
  public_url: "{{ .HTTP.PublicURL }}"

# The stats server configuration.
stats:
  # The address on which the stats server will listen.
  listen_addr: "{{ .Stats.ListenAddr }}"

# The logger configuration.
log:
  # The format of the logs. Valid values are "json", "logfmt", and "text".
  format: "{{ .Log.Format }}"

  # The time format for the log "ts" field.
  # Format must be described in Golang's time format.
  time_format: "{{ .Log.TimeFormat }}"

# The cross-origin configuration.
cors:
  # Whether or not CORS headers are sent.
  enabled: {{ .CORS.Enabled }}

  # The origins allowed to read responses.
  allowed_origins: [{{ join .CORS.AllowedOrigins }}]

  # The request headers clients may send.
  allowed_headers: [{{ join .CORS.AllowedHeaders }}]

  # Whether or not credentialed requests are allowed.
  allow_credentials: {{ .CORS.AllowCredentials }}

  # The number of seconds user agents may cache preflight results.
  max_age: {{ .CORS.MaxAge }}

# The page size of commit listings when the request does not carry a limit.
default_commit_limit: {{ .DefaultCommitLimit }}
`
