package main

import (
	"github.com/sqldns/sqldns/cmd"
)

func main() {
	cmd.Execute()
}
