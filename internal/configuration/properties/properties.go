package properties

// NodeProperties identifies one member of the fixed voting set.
type NodeProperties struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type ApplicationConfigProperties struct {
	Profile  string `yaml:"profile"`
	LogLevel string `yaml:"log-level"`
}

type RaftConfigProperties struct {
	Local           NodeProperties   `yaml:"local"`
	Peers           []NodeProperties `yaml:"peers"`
	DataDir         string           `yaml:"data-dir"`
	ElectTimeoutMs  uint64           `yaml:"elect-timeout-ms"`
	HeartbeatMs     uint64           `yaml:"heartbeat-ms"`
	AppendBatch     uint64           `yaml:"append-batch"`
	SegmentSize     uint64           `yaml:"segment-size"`
	ProposeTimeout  uint64           `yaml:"propose-timeout-ms"`
	VoteTargetTerm  uint64           `yaml:"vote-target-term"`
	VoteTargetIndex uint64           `yaml:"vote-target-index"`
}

type TransportConfigProperties struct {
	Network string `yaml:"network"`
	Address string `yaml:"address"`
	Timeout uint64 `yaml:"timeout"`
}

type MetricsConfigProperties struct {
	Address string `yaml:"address"`
}

type Config struct {
	Application ApplicationConfigProperties `yaml:"app"`
	Transport   TransportConfigProperties   `yaml:"transport"`
	Raft        RaftConfigProperties        `yaml:"raft"`
	Metrics     MetricsConfigProperties     `yaml:"metrics"`
}
