package locality

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/rdbms/shared"
)

// Locality says whether a server runs on this machine.
// The zero value is Remote so that anything left undecided is treated as remote.
type Locality int

const (
	Remote Locality = iota
	Local
)

func (l Locality) String() string {
	if l == Local {
		return "local"
	}
	return "remote"
}

func (l Locality) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Rule names the check that decided a classification.
type Rule string

const (
	RuleLocalAlias       Rule = "local-alias"
	RuleMachineName      Rule = "machine-name"
	RuleIPLiteral        Rule = "ip-literal"
	RuleInterfaceAddress Rule = "interface-address"
	RuleDNS              Rule = "dns"
	RuleDefaultRemote    Rule = "default-remote"
)

var localAliases = map[string]struct{}{
	".":         {},
	"localhost": {},
	"(local)":   {},
	"127.0.0.1": {},
	"::1":       {},
}

// localNets are the private and link-local ranges treated as local.
var localNets = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"fe80::/10",
	"fc00::/7",
)

// Decision is the result of Classify along with the evidence for it.
type Decision struct {
	Server   string   `json:"server"`
	Host     string   `json:"host"`
	Locality Locality `json:"locality"`
	Rule     Rule     `json:"rule"`
	Detail   string   `json:"detail"`
	Trace    []string `json:"trace"`
}

// IsLocal is a convenience for d.Locality == Local.
func (d Decision) IsLocal() bool {
	return d.Locality == Local
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Classifier decides whether a SQL Server name refers to this machine.
// Every machine dependency is a field so that results are repeatable in tests.
type Classifier struct {
	Log            logger.Logger
	Hostname       func() (string, error)
	Domain         func() string
	InterfaceAddrs func() ([]net.IP, error)
	Resolver       Resolver
	LookupTimeout  time.Duration
}

// NewClassifier returns a Classifier that inspects the real machine.
func NewClassifier(log logger.Logger) *Classifier {
	return &Classifier{
		Log:            log,
		Hostname:       os.Hostname,
		Domain:         EnvDomain,
		InterfaceAddrs: UpInterfaceAddrs,
		Resolver:       net.DefaultResolver,
		LookupTimeout:  constants.DNSLookupTimeoutSeconds * time.Second,
	}
}

// Classify returns Local or Remote for server.
// The checks run in order and the first match wins. Anything inconclusive is Remote.
func (c *Classifier) Classify(ctx context.Context, server string) Decision {
	d := &tracer{
		Decision: Decision{Server: server, Locality: Remote},
		log:      c.logger().WithFields(logger.Fields{"server": server}),
	}
	host := strings.ToLower(shared.ParseServer(server).Host)
	d.Host = host
	if host == "" {
		return d.decide(Remote, RuleDefaultRemote, "empty server name")
	}
	// 1. Well known aliases.
	if _, ok := localAliases[host]; ok {
		return d.decide(Local, RuleLocalAlias, fmt.Sprintf("%q is a local alias", host))
	}
	d.step(RuleLocalAlias, "no match")
	// 2. This machine's own name.
	if variant, ok := c.matchMachineName(d, host); ok {
		return d.decide(Local, RuleMachineName, fmt.Sprintf("%q matches machine name variant %q", host, variant))
	}
	// 3 and 4. IP literals.
	if ip := parseIP(host); ip != nil {
		if rule, detail, ok := c.classifyIP(d, ip); ok {
			return d.decide(Local, rule, detail)
		}
		return d.decide(Remote, RuleDefaultRemote, fmt.Sprintf("%v is not a local or private address", ip))
	}
	d.step(RuleIPLiteral, "not an IP literal")
	// 5. Resolve the name and check each address.
	addrs, err := c.lookup(ctx, host)
	if err != nil {
		d.step(RuleDNS, fmt.Sprintf("lookup failed: %v", err))
		return d.decide(Remote, RuleDefaultRemote, "name could not be resolved")
	}
	for _, a := range addrs {
		if _, detail, ok := c.classifyIP(d, a.IP); ok {
			return d.decide(Local, RuleDNS, fmt.Sprintf("%q resolved to %v: %v", host, a.IP, detail))
		}
	}
	d.step(RuleDNS, fmt.Sprintf("resolved to %v address(es), none local", len(addrs)))
	// 6. Fail safe.
	return d.decide(Remote, RuleDefaultRemote, "no rule matched")
}

func (c *Classifier) logger() logger.Logger {
	if c.Log == nil {
		return logger.Discard()
	}
	return c.Log
}

func (c *Classifier) matchMachineName(d *tracer, host string) (string, bool) {
	if c.Hostname == nil {
		d.step(RuleMachineName, "hostname unavailable")
		return "", false
	}
	h, err := c.Hostname()
	if err != nil || h == "" {
		d.step(RuleMachineName, fmt.Sprintf("hostname unavailable: %v", err))
		return "", false
	}
	domain := ""
	if c.Domain != nil {
		domain = c.Domain()
	}
	for _, v := range MachineNameVariants(h, domain) {
		if host == v {
			return v, true
		}
	}
	d.step(RuleMachineName, fmt.Sprintf("no match for machine %q", strings.ToLower(h)))
	return "", false
}

// classifyIP applies the private range check then the interface check.
func (c *Classifier) classifyIP(d *tracer, ip net.IP) (Rule, string, bool) {
	if ip.IsLoopback() {
		return RuleIPLiteral, fmt.Sprintf("%v is a loopback address", ip), true
	}
	for _, n := range localNets {
		if n.Contains(ip) {
			return RuleIPLiteral, fmt.Sprintf("%v is in private range %v", ip, n), true
		}
	}
	d.step(RuleIPLiteral, fmt.Sprintf("%v is not loopback or private", ip))
	if c.InterfaceAddrs == nil {
		d.step(RuleInterfaceAddress, "interfaces unavailable")
		return "", "", false
	}
	addrs, err := c.InterfaceAddrs()
	if err != nil {
		d.step(RuleInterfaceAddress, fmt.Sprintf("interfaces unavailable: %v", err))
		return "", "", false
	}
	for _, a := range addrs {
		if a.Equal(ip) {
			return RuleInterfaceAddress, fmt.Sprintf("%v is assigned to a local interface", ip), true
		}
	}
	d.step(RuleInterfaceAddress, fmt.Sprintf("%v is not assigned to any of %v local interface address(es)", ip, len(addrs)))
	return "", "", false
}

func (c *Classifier) lookup(ctx context.Context, host string) ([]net.IPAddr, error) {
	if c.Resolver == nil {
		return nil, fmt.Errorf("no resolver")
	}
	timeout := c.LookupTimeout
	if timeout <= 0 {
		timeout = constants.DNSLookupTimeoutSeconds * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Resolver.LookupIPAddr(ctx, host)
}

// tracer records each step of a classification and logs it.
type tracer struct {
	Decision
	log logger.Logger
}

func (t *tracer) step(rule Rule, detail string) {
	t.Trace = append(t.Trace, fmt.Sprintf("%v: %v", rule, detail))
	t.log.WithFields(logger.Fields{"host": t.Host, "rule": string(rule)}).Trace(detail)
}

func (t *tracer) decide(l Locality, rule Rule, detail string) Decision {
	t.Locality = l
	t.Rule = rule
	t.Detail = detail
	t.Trace = append(t.Trace, fmt.Sprintf("%v: %v => %v", rule, detail, l))
	t.log.WithFields(logger.Fields{"host": t.Host, "rule": string(rule), "locality": l.String()}).Debug(detail)
	return t.Decision
}

// MachineNameVariants returns the lower case names this machine may be addressed by.
func MachineNameVariants(hostname string, domain string) []string {
	h := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(hostname), "."))
	if h == "" {
		return nil
	}
	short := h
	if idx := strings.Index(h, "."); idx > 0 {
		short = h[:idx]
		if domain == "" { // if the hostname is already qualified...
			domain = h[idx+1:]
		}
	}
	domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
	retval := []string{h}
	add := func(v string) {
		for _, x := range retval {
			if x == v {
				return
			}
		}
		retval = append(retval, v)
	}
	add(short)
	add(short + ".local")
	if domain != "" {
		add(short + "." + domain)
	}
	return retval
}

// EnvDomain returns the domain of the current user from the environment, if any.
func EnvDomain() string {
	for _, k := range []string{"USERDNSDOMAIN", "USERDOMAIN"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// UpInterfaceAddrs returns the unicast addresses of interfaces that are up.
func UpInterfaceAddrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	retval := make([]net.IP, 0)
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 { // if the interface is down...
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			switch v := a.(type) {
			case *net.IPNet:
				retval = append(retval, v.IP)
			case *net.IPAddr:
				retval = append(retval, v.IP)
			}
		}
	}
	return retval, nil
}

// parseIP parses host as an IP literal, ignoring any IPv6 zone.
func parseIP(host string) net.IP {
	if idx := strings.Index(host, "%"); idx >= 0 {
		host = host[:idx]
	}
	return net.ParseIP(host)
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	retval := make([]*net.IPNet, 0, len(cidrs))
	for _, s := range cidrs {
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			panic(err)
		}
		retval = append(retval, n)
	}
	return retval
}
