package cmd

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Version command", func() {
	It("should print version and build time", func() {
		c := newVersionCommand()

		out := new(bytes.Buffer)
		c.SetOut(out)

		Expect(c.Execute()).Should(Succeed())

		Expect(out.String()).Should(ContainSubstring("sqldns"))
		Expect(out.String()).Should(ContainSubstring("Version: undefined"))
		Expect(out.String()).Should(ContainSubstring("Build time: undefined"))
	})
})
