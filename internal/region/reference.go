package region

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// referenceFile is the on-disk shape of the canonical region list. Both a
// bare string list and a `regions:` document are accepted.
type referenceFile struct {
	Regions []string `yaml:"regions"`
}

// LoadReference reads the canonical region list from a YAML file. Order is
// preserved: it is the documented tie-break order for equal-score matches.
func LoadReference(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: read reference list %s", path)
	}

	var doc referenceFile
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Regions) > 0 {
		return doc.Regions, nil
	}

	var plain []string
	if err := yaml.Unmarshal(data, &plain); err != nil {
		return nil, eris.Wrapf(err, "region: parse reference list %s", path)
	}
	if len(plain) == 0 {
		return nil, eris.Errorf("region: reference list %s is empty", path)
	}
	return plain, nil
}
