package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Decode parses TOML text into conf.
func Decode(raw string, conf *Config) error {
	_, err := toml.Decode(raw, conf)
	return errors.Wrap(err, "decode config")
}

// Encode renders conf as TOML, one key per line.
func Encode(conf *Config) (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(conf); err != nil {
		return "", errors.Wrap(err, "encode config")
	}
	return b.String(), nil
}

// DecodeFile reads path over conf. Keys imager does not know are rejected.
func DecodeFile(path string, conf *Config) error {
	md, err := toml.DecodeFile(path, conf)
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := lo.Map(unknown, func(k toml.Key, _ int) string { return k.String() })
		return errors.Newf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}
