/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/edumerge/mail-merge/cmd"

func main() {
	cmd.Execute()
}
