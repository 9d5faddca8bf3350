package render

import (
	"encoding/json"
	"io/ioutil"

	"github.com/sirupsen/logrus"

	"github.com/thetooth/pinggraph/session"
	"github.com/thetooth/pinggraph/statistics"
)

// StatSink dumps the report as JSON to a well known path on every refresh so
// external tooling can poll the live session.
type StatSink struct {
	Path string
}

func NewStatSink(path string) *StatSink {
	return &StatSink{Path: path}
}

func (s *StatSink) Render(_ []session.Record, report statistics.Report) {
	b, err := json.Marshal(&report)
	if err != nil {
		logrus.Panic(err)
	}

	if err := ioutil.WriteFile(s.Path, b, 0644); err != nil {
		logrus.Error("[ STAT_SINK ] write ", s.Path, ": ", err)
	}
}
