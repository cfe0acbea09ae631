//go:build windows

package probe

import "errors"

func createPlatformPinger(bool) (Pinger, error) {
	return nil, errors.New("unprivileged ICMP sockets are not available on windows")
}
