package sse_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerline/pkg/sse"
)

var _ = Describe("Reader", func() {
	readAll := func(src string) []*sse.Event {
		r := sse.NewReader(strings.NewReader(src))
		var events []*sse.Event
		for {
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			if ev == nil {
				return events
			}
			events = append(events, ev)
		}
	}

	It("parses a single data event", func() {
		events := readAll("data: hello\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("hello"))
		Expect(events[0].Type).To(Equal(""))
	})

	It("parses multiple events", func() {
		events := readAll("data: first\n\ndata: second\n\n")
		Expect(events).To(HaveLen(2))
		Expect(events[0].Data).To(Equal("first"))
		Expect(events[1].Data).To(Equal("second"))
	})

	It("joins multiple data lines with newlines", func() {
		events := readAll("data: line one\ndata: line two\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("line one\nline two"))
	})

	It("captures the event type", func() {
		events := readAll("event: delta\ndata: payload\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Type).To(Equal("delta"))
		Expect(events[0].Data).To(Equal("payload"))
	})

	It("captures the event id", func() {
		events := readAll("id: 42\ndata: payload\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].ID).To(Equal("42"))
	})

	It("skips comment lines", func() {
		events := readAll(": keep-alive\ndata: real\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("real"))
	})

	It("skips blank lines between events", func() {
		events := readAll("\n\ndata: after blanks\n\n\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("after blanks"))
	})

	It("strips a single leading space after the colon", func() {
		events := readAll("data:no space\ndata:  two spaces\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("no space\n two spaces"))
	})

	It("yields an in-progress event when the stream ends without a blank line", func() {
		events := readAll("data: truncated stream")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("truncated stream"))
	})

	It("returns nil for an empty source", func() {
		r := sse.NewReader(strings.NewReader(""))
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(BeNil())
	})

	It("ignores retry and unknown fields", func() {
		events := readAll("retry: 1000\nunknown: x\ndata: kept\n\n")
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("kept"))
	})
})

var _ = Describe("WriteData", func() {
	It("writes a data-framed JSON event", func() {
		var sb strings.Builder
		err := sse.WriteData(&sb, map[string]string{"type": "done"})
		Expect(err).NotTo(HaveOccurred())
		Expect(sb.String()).To(Equal("data: {\"type\":\"done\"}\n\n"))
	})

	It("round-trips through the reader", func() {
		var sb strings.Builder
		Expect(sse.WriteData(&sb, map[string]string{"a": "b"})).To(Succeed())
		Expect(sse.WriteData(&sb, map[string]string{"c": "d"})).To(Succeed())

		r := sse.NewReader(strings.NewReader(sb.String()))
		first, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Data).To(Equal(`{"a":"b"}`))

		second, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Data).To(Equal(`{"c":"d"}`))
	})
})
