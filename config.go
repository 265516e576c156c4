package rhmap

import (
	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	// DefaultDisplacementThreshold is the number of buckets a fast-mode
	// insertion may visit before the adaptation policy runs.
	DefaultDisplacementThreshold = 128
	// DefaultLoadFactorThreshold splits the adaptation decision: at or above
	// it a long probe is blamed on occupancy and the table grows, below it
	// the map switches to safe hashing.
	DefaultLoadFactorThreshold = 0.625
)

// Policy holds the adaptation thresholds of a map.
type Policy struct {
	DisplacementThreshold int     `toml:"displacement_threshold"`
	LoadFactorThreshold   float64 `toml:"load_factor_threshold"`
}

// DefaultPolicy returns the thresholds used when none are configured.
func DefaultPolicy() Policy {
	return Policy{
		DisplacementThreshold: DefaultDisplacementThreshold,
		LoadFactorThreshold:   DefaultLoadFactorThreshold,
	}
}

// Validate checks that the thresholds describe a usable policy.
func (p Policy) Validate() error {
	if p.DisplacementThreshold < 1 {
		return errors.Newf("rhmap: displacement threshold must be positive, got %d",
			p.DisplacementThreshold)
	}
	if !(p.LoadFactorThreshold > 0 && p.LoadFactorThreshold <= 1) {
		return errors.Newf("rhmap: load factor threshold must be in (0, 1], got %v",
			p.LoadFactorThreshold)
	}
	return nil
}

// DecodePolicy parses a TOML document. Keys that are absent keep their
// default values; unknown keys are rejected.
func DecodePolicy(data string) (Policy, error) {
	p := DefaultPolicy()
	md, err := toml.Decode(data, &p)
	if err != nil {
		return Policy{}, errors.Wrap(err, "rhmap: decoding policy")
	}
	return checkDecodedPolicy(p, md)
}

// LoadPolicy reads a TOML policy file, see DecodePolicy.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Policy{}, errors.Wrapf(err, "rhmap: loading policy from %s", path)
	}
	return checkDecodedPolicy(p, md)
}

func checkDecodedPolicy(p Policy, md toml.MetaData) (Policy, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Policy{}, errors.Newf("rhmap: unknown policy keys %v", undecoded)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// MapConfig defines configurable Map options.
type MapConfig struct {
	sizeHint    int
	policy      Policy
	logger      *zap.Logger
	safeHashing bool
	seeded      bool
	k0, k1      uint64
}

// WithPresize configures a new Map with capacity enough to hold sizeHint
// entries without growing. If sizeHint is zero or negative, the value is
// ignored.
func WithPresize(sizeHint int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.sizeHint = sizeHint
	}
}

// WithPolicy replaces the adaptation thresholds. It panics if the policy
// does not validate.
func WithPolicy(p Policy) func(*MapConfig) {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return func(c *MapConfig) {
		c.policy = p
	}
}

// WithLogger sets the logger that receives growth and adaptation events.
// A nil logger disables logging.
func WithLogger(logger *zap.Logger) func(*MapConfig) {
	return func(c *MapConfig) {
		c.logger = logger
	}
}

// WithSafeHashing makes a map over scalar keys start in safe mode. Maps
// over other key types always hash safely.
func WithSafeHashing() func(*MapConfig) {
	return func(c *MapConfig) {
		c.safeHashing = true
	}
}

// WithSeed fixes the SipHash keys used once the map hashes safely, which
// makes bucket placement reproducible. Without it the keys are drawn at
// random when safe mode is entered.
func WithSeed(k0, k1 uint64) func(*MapConfig) {
	return func(c *MapConfig) {
		c.seeded = true
		c.k0, c.k1 = k0, k1
	}
}
