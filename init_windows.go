//go:build windows

package ioq

import "golang.org/x/sys/windows"

func platformInit() error {
	var data windows.WSAData
	return windows.WSAStartup(uint32(0x0202), &data) // MAKEWORD(2, 2)
}

func platformTeardown() error {
	return windows.WSACleanup()
}
