package rig

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/channel"
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/site"
)

func TestServerSession(t *testing.T) {
	g := NewWithT(t)
	srv := NewServer(NewElastic(100), zerolog.Nop())
	client, rig := channel.Pipe()

	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(rig) }()

	remote, err := site.NewRemote(client)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(remote.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())
	g.Expect(remote.SetTrialResponse(dynamo.Vector{0.01}, dynamo.Vector{0}, dynamo.Vector{0}, nil, 0.1)).To(Succeed())

	f, err := remote.Force()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f[0]).To(BeNumerically("~", 1.0, 1e-12))
	tm, err := remote.Time()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tm).To(Equal(dynamo.Vector{0.1}))

	g.Expect(remote.CommitState(0.1)).To(Succeed())
	g.Expect(remote.Close()).To(Succeed())
	g.Eventually(done, time.Second).Should(Receive(BeNil()))

	st := srv.Status()
	g.Expect(st.Connected).To(BeFalse())
	g.Expect(st.Payload).To(Equal(5))
	g.Expect(st.Commands).To(HaveKeyWithValue("SET_TRIAL_RESPONSE", 1))
	g.Expect(st.Commands).To(HaveKeyWithValue("GET_FORCE", 1))
	g.Expect(st.Commands).To(HaveKeyWithValue("COMMIT_STATE", 1))
	g.Expect(st.Commands).To(HaveKeyWithValue("TERMINATE", 1))
	g.Expect(st.Commands).NotTo(HaveKey("GET_TIME"))
	g.Expect(st.Force).To(Equal([]float64{1.0}))
}

func TestServerRejectsBadHandshake(t *testing.T) {
	g := NewWithT(t)
	srv := NewServer(NewElastic(1), zerolog.Nop())
	client, rig := channel.Pipe()
	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(rig) }()

	g.Expect(client.SendInts([]int32{1, 1, 1, 0, 1, 1, 1, 1, 1, 1, 2})).To(Succeed())
	g.Eventually(done, time.Second).Should(Receive(HaveOccurred()))
	g.Expect(srv.Status().LastError).NotTo(BeEmpty())
}

func TestServeOverTCP(t *testing.T) {
	g := NewWithT(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	g.Expect(err).NotTo(HaveOccurred())

	srv := NewServer(NewElastic(100), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	stream, err := channel.DialTCP(ln.Addr().String(), time.Second)
	g.Expect(err).NotTo(HaveOccurred())
	remote, _ := site.NewRemote(stream)
	g.Expect(remote.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())
	g.Expect(remote.SetTrialResponse(dynamo.Vector{0.02}, dynamo.Vector{0}, dynamo.Vector{0}, nil, 0)).To(Succeed())
	f, err := remote.Force()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f[0]).To(BeNumerically("~", 2.0, 1e-12))
	g.Expect(remote.Close()).To(Succeed())

	cancel()
	g.Eventually(served, time.Second).Should(Receive(BeNil()))
}

func TestStatusHandler(t *testing.T) {
	g := NewWithT(t)
	srv := NewServer(NewElastic(1), zerolog.Nop())
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sizes", nil))
	g.Expect(rec.Code).To(Equal(http.StatusNotFound))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	var st Status
	g.Expect(json.NewDecoder(rec.Body).Decode(&st)).To(Succeed())
	g.Expect(st.Connected).To(BeFalse())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	g.Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
}
