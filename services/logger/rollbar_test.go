package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/school"
)

func TestRollbarLogger_print(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewRollbarLogger(log.New(buf, "", 0), core.NewTestConfig())

	logger.Info("period closed", school.User{ID: "u1", Username: "tutor1a"}, map[string]interface{}{"section": "1A"})

	assert.Equal(t, "INFO: period closed\nuser: tutor1a (u1)\nmap[section:1A]\n", buf.String())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(log.New(new(bytes.Buffer), "", 0), core.NewTestConfig())

	args := logger.prepare("msg", []interface{}{school.User{ID: "u1"}, "extra", school.User{ID: "u2"}})
	assert.Equal(t, []interface{}{"msg", "extra"}, args)
}
