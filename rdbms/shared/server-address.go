package shared

import (
	"net"
	"strconv"
	"strings"
)

// ServerAddress is a SQL Server name split into its parts.
// Server names take the forms host, host\instance, host,port and tcp:host,port.
type ServerAddress struct {
	Host     string
	Instance string
	Port     int
}

// ParseServer splits a SQL Server name into host, instance and port.
// The host keeps its original case. IPv6 brackets are removed.
func ParseServer(server string) ServerAddress {
	s := strings.TrimSpace(server)
	if len(s) > 4 && strings.EqualFold(s[:4], "tcp:") { // if there is a protocol prefix...
		s = s[4:]
	}
	a := ServerAddress{}
	if idx := strings.LastIndex(s, ","); idx >= 0 { // if there is a port suffix...
		if p, err := strconv.Atoi(strings.TrimSpace(s[idx+1:])); err == nil {
			a.Port = p
		}
		s = s[:idx]
	}
	if idx := strings.Index(s, `\`); idx >= 0 { // if there is a named instance...
		a.Instance = s[idx+1:]
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	} else if h, p, err := net.SplitHostPort(s); err == nil && a.Port == 0 { // if the port was given as host:port...
		if port, err := strconv.Atoi(p); err == nil {
			s = strings.Trim(h, "[]")
			a.Port = port
		}
	}
	a.Host = s
	return a
}

// DialHost returns the host name to use on the network.
// The SQL Server shorthand names for the local machine map to localhost.
func (a ServerAddress) DialHost() string {
	switch strings.ToLower(a.Host) {
	case ".", "(local)", "":
		return "localhost"
	}
	return a.Host
}
