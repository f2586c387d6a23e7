package logging_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/internal/logging"
)

var _ = Describe("New", func() {
	It("builds a usable logger for a valid level and json format", func() {
		log, err := logging.New("info", "json")
		Expect(err).NotTo(HaveOccurred())
		Expect(log.GetSink()).NotTo(BeNil())
	})

	It("builds a usable logger for console format", func() {
		log, err := logging.New("debug", "console")
		Expect(err).NotTo(HaveOccurred())
		Expect(log.GetSink()).NotTo(BeNil())
	})

	It("defaults to json when format is empty", func() {
		_, err := logging.New("warn", "")
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an invalid level", func() {
		_, err := logging.New("verbose", "json")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an invalid format", func() {
		_, err := logging.New("info", "xml")
		Expect(err).To(HaveOccurred())
	})
})
