package util

import "strings"

func IsIPv6(address string) bool {
	return strings.Count(address, ":") >= 2
}
