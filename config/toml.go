package config

import (
	"os"
	"text/template"
)

const RelayConfigTemplate = `db_host = "{{ .DbHost }}"
db_port = {{ .DbPort }}
db_username = "{{ .DbUsername }}"
db_password = "{{ .DbPassword }}"
db_schema = "{{ .DbSchema }}"
in_memory = {{ .InMemory }}

server_port = {{ .ServerPort }}
action = "{{ .Action }}"
queue_size = {{ .QueueSize }}

[source]
	chain = "{{ .Source.Chain }}"
	chain_id = {{ .Source.ChainId }}
	rpcs = [{{ range $i, $v := .Source.Rpcs }}{{ if $i }}, {{ end }}"{{ $v }}"{{ end }}]
	use_external_rpcs = {{ .Source.UseExternalRpcs }}
	rpc_timeout = {{ .Source.RpcTimeout }}
	dao_address = "{{ .Source.DaoAddress }}"
	poll_interval = {{ .Source.PollInterval }}
	poll_limit = {{ .Source.PollLimit }}

[target]
	chain = "{{ .Target.Chain }}"
	chain_id = {{ .Target.ChainId }}
	rpcs = [{{ range $i, $v := .Target.Rpcs }}{{ if $i }}, {{ end }}"{{ $v }}"{{ end }}]
	use_external_rpcs = {{ .Target.UseExternalRpcs }}
	rpc_timeout = {{ .Target.RpcTimeout }}
	token_address = "{{ .Target.TokenAddress }}"
`

// WriteConfigFile renders cfg with RelayConfigTemplate into path.
func WriteConfigFile(path string, cfg *Relay) error {
	tmpl, err := template.New("relay").Parse(RelayConfigTemplate)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, cfg)
}

// DefaultRelay returns the reference deployment: Base Sepolia DAO to Optimism Sepolia USDC.
func DefaultRelay() *Relay {
	cfg := &Relay{
		Source: Source{
			ChainConfig: ChainConfig{
				Chain:   "base-sepolia",
				ChainId: 84532,
				Rpcs:    []string{"https://sepolia.base.org"},
			},
		},
		Target: Target{
			ChainConfig: ChainConfig{
				Chain: "optimism-sepolia",
				Rpcs:  []string{"https://sepolia.optimism.io"},
			},
		},
	}
	cfg.SetDefaults()

	return cfg
}
