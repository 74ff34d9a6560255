package sse

import (
	"context"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Stream", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Reader", func() {
		It("allows only one reader at a time", func() {
			s := FromSlice([]int{1, 2})
			r, err := s.Reader()
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Locked()).To(BeTrue())

			_, err = s.Reader()
			Expect(err).To(MatchError(ErrStreamLocked))

			Expect(r.ReleaseLock()).To(Succeed())
			Expect(s.Locked()).To(BeFalse())

			_, err = s.Reader()
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a second release", func() {
			r, err := FromSlice([]int{1}).Reader()
			Expect(err).NotTo(HaveOccurred())

			Expect(r.ReleaseLock()).To(Succeed())
			Expect(r.ReleaseLock()).To(MatchError(ErrReaderReleased))

			_, _, err = r.Read(ctx)
			Expect(err).To(MatchError(ErrReaderReleased))
		})

		It("reads values in order and then reports done", func() {
			r, err := FromSlice([]string{"a", "b"}).Reader()
			Expect(err).NotTo(HaveOccurred())

			v, done, err := r.Read(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(v).To(Equal("a"))

			v, _, _ = r.Read(ctx)
			Expect(v).To(Equal("b"))

			_, done, err = r.Read(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())

			_, done, _ = r.Read(ctx)
			Expect(done).To(BeTrue())
		})

		It("keeps returning a terminal error", func() {
			src := &trackingSource[int]{err: errBoom}
			r, err := NewStream[int](src).Reader()
			Expect(err).NotTo(HaveOccurred())

			_, _, err = r.Read(ctx)
			Expect(err).To(MatchError(errBoom))
			_, _, err = r.Read(ctx)
			Expect(err).To(MatchError(errBoom))
			Expect(src.pulls).To(Equal(1))
		})

		It("honours a cancelled context", func() {
			r, err := FromSlice([]int{1}).Reader()
			Expect(err).NotTo(HaveOccurred())

			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, _, err = r.Read(cctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Cancel", func() {
		It("refuses to cancel a locked stream directly", func() {
			s := FromSlice([]int{1})
			_, err := s.Reader()
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Cancel(nil)).To(MatchError(ErrStreamLocked))
		})

		It("propagates cancellation through piped stages", func() {
			src := &trackingSource[string]{values: []string{"data: a\n\n", "data: b\n\n"}}
			events := ParseEvents(SplitLines(NewStream[string](src)))

			r, err := events.Reader()
			Expect(err).NotTo(HaveOccurred())

			ev, _, err := r.Read(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("a"))

			Expect(r.Cancel(errBoom)).To(Succeed())
			Expect(src.cancelled).To(BeTrue())
			Expect(src.reason).To(MatchError(errBoom))

			_, done, err := r.Read(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
		})
	})

	Describe("Pipe", func() {
		It("fails when the upstream is already locked", func() {
			s := FromSlice([]string{"x"})
			_, err := s.Reader()
			Expect(err).NotTo(HaveOccurred())

			_, err = Collect(ctx, SplitLines(s))
			Expect(err).To(MatchError(ErrStreamLocked))
		})

		It("only pulls upstream when downstream asks", func() {
			src := &trackingSource[string]{values: []string{"a\nb\n", "c\n"}}
			r, err := SplitLines(NewStream[string](src)).Reader()
			Expect(err).NotTo(HaveOccurred())
			Expect(src.pulls).To(Equal(0))

			v, _, _ := r.Read(ctx)
			Expect(v).To(Equal("a"))
			Expect(src.pulls).To(Equal(1))

			v, _, _ = r.Read(ctx)
			Expect(v).To(Equal("b"))
			Expect(src.pulls).To(Equal(1))

			v, _, _ = r.Read(ctx)
			Expect(v).To(Equal("c"))
			Expect(src.pulls).To(Equal(2))
		})

		It("converts a non-error panic into an error", func() {
			out := Pipe[string, string](FromSlice([]string{"x"}), panicTransformer{value: "exploded"})
			_, err := Collect(ctx, out)
			Expect(err).To(MatchError("exploded"))
		})

		It("passes panicked errors through unchanged", func() {
			out := Pipe[string, string](FromSlice([]string{"x"}), panicTransformer{value: errBoom})
			_, err := Collect(ctx, out)
			Expect(err).To(BeIdenticalTo(errBoom))
		})

		It("forwards upstream errors as terminal errors", func() {
			src := &trackingSource[string]{values: []string{"one\ntw"}, err: errBoom}
			lines := SplitLines(NewStream[string](src))

			got, err := Collect(ctx, lines)
			Expect(err).To(MatchError(errBoom))
			Expect(got).To(Equal([]string{"one"}))
		})
	})

	Describe("NewTextDecoder", func() {
		It("reassembles multi-byte characters split across reads", func() {
			text := "héllo, 世界 👋\n"
			chunks := collect(NewTextDecoder(iotest.OneByteReader(strings.NewReader(text))))
			Expect(strings.Join(chunks, "")).To(Equal(text))
		})

		It("drops a leading byte order mark", func() {
			chunks := collect(NewTextDecoder(strings.NewReader("\ufeffdata: x\n")))
			Expect(strings.Join(chunks, "")).To(Equal("data: x\n"))
		})

		It("replaces invalid bytes", func() {
			chunks := collect(NewTextDecoder(strings.NewReader("a\xffb")))
			Expect(strings.Join(chunks, "")).To(Equal("a\uFFFDb"))
		})

		It("emits text read together with an error before the error", func() {
			r := &dataErrReader{data: "data: x\n", err: errBoom}
			got, err := Collect(context.Background(), NewTextDecoder(r))
			Expect(err).To(MatchError(errBoom))
			Expect(strings.Join(got, "")).To(Equal("data: x\n"))
		})

		It("closes the body on cancel", func() {
			body := &closeRecorder{Reader: strings.NewReader("data: x\n\n")}
			s := NewTextDecoder(body)
			Expect(s.Cancel(nil)).To(Succeed())
			Expect(body.closed).To(BeTrue())
		})
	})
})

// dataErrReader returns all of its data and err from the same Read.
type dataErrReader struct {
	data string
	err  error
	done bool
}

func (r *dataErrReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), r.err
}
