package mcp_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/api/mcp"
	"github.com/SaintNick1214/cortex/pkg/hierarchy"
	"github.com/SaintNick1214/cortex/pkg/records"
	"github.com/SaintNick1214/cortex/pkg/revision"
	"github.com/SaintNick1214/cortex/pkg/storage/inmemory"
)

func TestMCP(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MCP Suite")
}

var _ = Describe("MCP Server", func() {
	var (
		server   *mcp.Server
		facts    *revision.Engine
		recs     *records.Service
		contexts *hierarchy.Manager
	)

	BeforeEach(func() {
		driver := inmemory.NewDriver()
		facts = revision.NewEngine(revision.Config{Driver: driver})
		recs = records.NewService(records.Config{Driver: driver})
		contexts = hierarchy.NewManager(hierarchy.Config{Driver: driver})

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Facts:    facts,
			Records:  recs,
			Contexts: contexts,
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the fact engine is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Records:  recs,
				Contexts: contexts,
				Logger:   zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fact engine is required"))
		})

		It("returns an error when the records service is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Facts:    facts,
				Contexts: contexts,
				Logger:   zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("records service is required"))
		})

		It("returns an error when the context manager is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Facts:   facts,
				Records: recs,
				Logger:  zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("context manager is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Facts:    facts,
				Records:  recs,
				Contexts: contexts,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates a server with valid config", func() {
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			handler := server.Handler()
			Expect(handler).NotTo(BeNil())
		})

		It("builds a noop server without dependencies", func() {
			noop, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop).NotTo(BeNil())
		})
	})
})
