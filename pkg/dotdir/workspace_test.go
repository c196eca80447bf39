package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SaintNick1214/cortex/pkg/dotdir"
)

var _ = Describe("dotdir.Manager workspace", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadWorkspaceState", func() {
		It("returns nil when no workspace file exists", func() {
			state, err := m.LoadWorkspaceState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("loads a valid workspace state", func() {
			// Write a workspace file manually
			data := `{"memorySpaceId":"agent-alpha","userId":"user-1","participantId":"helper"}`
			err := os.WriteFile(filepath.Join(tmpDir, "workspace.json"), []byte(data), 0o644)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadWorkspaceState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).NotTo(BeNil())
			Expect(state.MemorySpaceID).To(Equal("agent-alpha"))
			Expect(state.UserID).To(Equal("user-1"))
			Expect(state.ParticipantID).To(Equal("helper"))
		})

		It("returns error for invalid JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "workspace.json"), []byte("not json"), 0o644)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadWorkspaceState(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})

	Describe("SaveWorkspace", func() {
		It("persists workspace state to disk", func() {
			state := &dotdir.WorkspaceState{
				MemorySpaceID: "agent-beta",
				UserID:        "user-2",
			}

			err := m.SaveWorkspace(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			// Verify the file exists
			_, err = os.Stat(filepath.Join(tmpDir, "workspace.json"))
			Expect(err).NotTo(HaveOccurred())

			// Load it back and verify
			loaded, err := m.LoadWorkspaceState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MemorySpaceID).To(Equal("agent-beta"))
			Expect(loaded.UserID).To(Equal("user-2"))
		})

		It("returns error for nil state", func() {
			err := m.SaveWorkspace(nil, tmpDir)
			Expect(err).To(HaveOccurred())
		})

		It("overwrites existing workspace state", func() {
			first := &dotdir.WorkspaceState{MemorySpaceID: "first"}
			second := &dotdir.WorkspaceState{MemorySpaceID: "second"}

			err := m.SaveWorkspace(first, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.SaveWorkspace(second, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadWorkspaceState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MemorySpaceID).To(Equal("second"))
		})
	})

	Describe("ClearWorkspace", func() {
		It("removes the workspace file", func() {
			state := &dotdir.WorkspaceState{MemorySpaceID: "to-clear"}
			err := m.SaveWorkspace(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.ClearWorkspace(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadWorkspaceState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("succeeds when no workspace file exists", func() {
			err := m.ClearWorkspace(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("round-trip", func() {
		It("saves and loads workspace state correctly", func() {
			state := &dotdir.WorkspaceState{
				MemorySpaceID: "agent-gamma",
				UserID:        "user-3",
				ParticipantID: "planner",
			}

			err := m.SaveWorkspace(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadWorkspaceState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(state))
		})
	})
})
