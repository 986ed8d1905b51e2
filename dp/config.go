package dp

import "log"

// Default process-wide description strings (spec.md §4.9, §6.3).
const (
	DefaultMfrDesc  = "Unknown"
	DefaultHwDesc   = "Unknown"
	DefaultSwDesc   = "Unknown"
	DefaultSerial   = "None"
	defaultMissSend = 128
	// DPMax is the exclusive upper bound on DatapathID values (spec.md §3).
	DPMax = 256
	// DPMaxPorts is the size of a Datapath's fixed port table (spec.md §3).
	DPMaxPorts = 256
	// MCGroups is the number of pre-registered multicast groups
	// (spec.md §6.2).
	MCGroups = 16
)

// IdentityOverride derives a hardware description and serial number from
// platform identity, mirroring the optional DMI-derived override in
// spec.md §4.9. DMI probing itself is out of scope (spec.md §1); this hook
// lets a caller supply the override through any mechanism it likes.
type IdentityOverride func() (hwDesc, serial string, ok bool)

// Config holds the core's process-wide, descriptive configuration
// (spec.md §6.3). It is constructed with functional options, mirroring
// ovsdb.Dial/ovsdb.New's OptionFunc pattern in the example pack.
type Config struct {
	MfrDesc  string
	HwDesc   string
	SwDesc   string
	Serial   string

	MissSendLen uint16

	Logger *log.Logger

	identityOverride IdentityOverride
}

// OptionFunc configures a Config.
type OptionFunc func(*Config) error

// NewConfig builds a Config from defaults plus any supplied options.
func NewConfig(options ...OptionFunc) (Config, error) {
	cfg := Config{
		MfrDesc:     DefaultMfrDesc,
		HwDesc:      DefaultHwDesc,
		SwDesc:      DefaultSwDesc,
		Serial:      DefaultSerial,
		MissSendLen: defaultMissSend,
	}

	for _, o := range options {
		if err := o(&cfg); err != nil {
			return Config{}, err
		}
	}

	if cfg.identityOverride != nil {
		if hwDesc, serial, ok := cfg.identityOverride(); ok {
			cfg.HwDesc = hwDesc
			cfg.Serial = serial
		}
	}

	return cfg, nil
}

// WithLogger installs a logger for diagnostic output, mirroring
// ovsdb.Debug(ll *log.Logger) in the example pack.
func WithLogger(ll *log.Logger) OptionFunc {
	return func(c *Config) error {
		c.Logger = ll
		return nil
	}
}

// WithDescriptions overrides the four process-wide description strings
// (spec.md §6.3).
func WithDescriptions(mfr, hw, sw, serial string) OptionFunc {
	return func(c *Config) error {
		c.MfrDesc, c.HwDesc, c.SwDesc, c.Serial = mfr, hw, sw, serial
		return nil
	}
}

// WithMissSendLen overrides the default miss_send_len newly created
// datapaths are initialized with (spec.md §3).
func WithMissSendLen(n uint16) OptionFunc {
	return func(c *Config) error {
		c.MissSendLen = n
		return nil
	}
}

// WithIdentityOverride installs the platform-identity override hook
// (spec.md §4.9).
func WithIdentityOverride(f IdentityOverride) OptionFunc {
	return func(c *Config) error {
		c.identityOverride = f
		return nil
	}
}

func (c Config) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
