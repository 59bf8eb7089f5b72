package state

import (
	"time"
)

// defaultStyle is used when the source document embeds no stylesheet and
// no replacement was configured.
var defaultStyle = []byte(`document {
  font-size: 10pt;
  line-height: 1.3;
}
p {
  margin-bottom: 0.7em;
}
p.title {
  font-size: 1.4em;
  margin-top: 1.5em;
  margin-bottom: 1em;
  break-inside: avoid;
}
p.caption {
  font-size: 0.9em;
}
note {
  font-size: 0.8em;
}
block.quote {
  margin-top: 1em;
  margin-bottom: 1em;
}
`)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:        time.Now(),
		DefaultStyle: defaultStyle,
	}
}
