package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/dbcop/logger"
)

var _ = Describe("Logger", func() {
	log := logger.NewJSONLogger("test-service", "debug", true)

	parse := func(b *bytes.Buffer) map[string]interface{} {
		var actual map[string]interface{}
		Expect(json.Unmarshal(b.Bytes(), &actual)).To(Succeed())
		return actual
	}

	It("Should have `test-service` as service name", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Info("Testing")

		Expect(parse(logOutput)["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Info("Testing")

		Expect(parse(logOutput)["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Warn("Testing")

		Expect(parse(logOutput)["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Error("Testing")
		actual := parse(logOutput)

		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Info("Testing")

		Expect(parse(logOutput)["msg"]).To(Equal("Testing"))
	})

	It("Should carry fields added by WithFields", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.WithFields(logger.Fields{"step": "extract"}).Info("Testing")
		actual := parse(logOutput)

		Expect(actual["step"]).To(Equal("extract"))
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should not log below the configured level", func() {
		quiet := logger.NewJSONLogger("quiet", "warn", false)
		logOutput := bytes.NewBufferString("")
		quiet.SetOutput(logOutput)

		quiet.Info("Testing")

		Expect(logOutput.Len()).To(BeZero())
	})
})
