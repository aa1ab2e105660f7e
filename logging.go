package hostbuf

import (
	"os"

	"github.com/sirupsen/logrus"
)

// init routes logrus output to stdout for easier log capture.
func init() {
	logrus.SetOutput(os.Stdout)
}

func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}
