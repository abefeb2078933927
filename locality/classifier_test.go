package locality_test

import (
	"context"
	"errors"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
)

type stubResolver map[string][]string

func (s stubResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := s[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	retval := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		retval = append(retval, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return retval, nil
}

type blockingResolver struct{}

func (blockingResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestClassifier() *locality.Classifier {
	return &locality.Classifier{
		Log:      logger.Discard(),
		Hostname: func() (string, error) { return "WORKSTATION01", nil },
		Domain:   func() string { return "corp.example.com" },
		InterfaceAddrs: func() ([]net.IP, error) {
			return []net.IP{net.ParseIP("203.0.113.7"), net.ParseIP("2001:db8::7")}, nil
		},
		Resolver: stubResolver{
			"intranet-sql":  {"10.20.30.40"},
			"edge-sql":      {"198.51.100.1", "203.0.113.7"},
			"cloud-sql":     {"198.51.100.2"},
			"loopback-name": {"127.0.0.1"},
		},
		LookupTimeout: time.Second,
	}
}

var _ = Describe("Classifier", func() {
	var c *locality.Classifier
	ctx := context.Background()

	BeforeEach(func() {
		c = newTestClassifier()
	})

	expectLocal := func(servers []string, rule locality.Rule) {
		for _, s := range servers {
			d := c.Classify(ctx, s)
			Expect(d.Locality).To(Equal(locality.Local), "server %q: %v", s, d.Trace)
			Expect(d.Rule).To(Equal(rule), "server %q", s)
		}
	}

	It("Should treat local aliases as local with or without an instance", func() {
		expectLocal([]string{".", `.\SQLEXPRESS`, "localhost", `LOCALHOST\inst`, "(local)", `(local)\x`, "127.0.0.1", "::1", ` localhost `}, locality.RuleLocalAlias)
	})

	It("Should treat the machine name and its qualified forms as local", func() {
		expectLocal([]string{"workstation01", `WORKSTATION01\SQL2019`, "workstation01.local", "Workstation01.corp.example.com", "workstation01,1433"}, locality.RuleMachineName)
	})

	It("Should treat loopback and private IP literals as local", func() {
		expectLocal([]string{"127.0.0.2", "10.0.0.1", "10.255.255.255", "172.16.0.1", "172.31.255.254", "192.168.1.10", `192.168.1.10\inst`, "169.254.10.10", "fe80::1", "fd00::1"}, locality.RuleIPLiteral)
	})

	It("Should treat a public literal assigned to a local interface as local", func() {
		expectLocal([]string{"203.0.113.7", "2001:db8::7"}, locality.RuleInterfaceAddress)
	})

	It("Should resolve names and re-apply the address checks", func() {
		expectLocal([]string{"intranet-sql", "edge-sql", "loopback-name"}, locality.RuleDNS)
	})

	It("Should treat public literals as remote", func() {
		for _, s := range []string{"8.8.8.8", "172.32.0.1", "172.15.255.255", "192.169.0.1", "11.0.0.1", "2001:4860::8888", "198.51.100.1,1433"} {
			d := c.Classify(ctx, s)
			Expect(d.Locality).To(Equal(locality.Remote), "server %q", s)
			Expect(d.Rule).To(Equal(locality.RuleDefaultRemote))
		}
	})

	It("Should treat names that resolve only to public addresses as remote", func() {
		d := c.Classify(ctx, "cloud-sql")
		Expect(d.Locality).To(Equal(locality.Remote))
		Expect(d.Trace).To(ContainElement(ContainSubstring("none local")))
	})

	It("Should fail safe to remote when DNS fails", func() {
		d := c.Classify(ctx, `unknown-host.invalid\inst`)
		Expect(d.Locality).To(Equal(locality.Remote))
		Expect(d.Detail).To(Equal("name could not be resolved"))
	})

	It("Should fail safe to remote when DNS times out", func() {
		c.Resolver = blockingResolver{}
		c.LookupTimeout = 50 * time.Millisecond
		start := time.Now()
		d := c.Classify(ctx, "slow-host")
		Expect(d.Locality).To(Equal(locality.Remote))
		Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
	})

	It("Should fail safe to remote when machine facts are unavailable", func() {
		c.Hostname = func() (string, error) { return "", errors.New("boom") }
		c.InterfaceAddrs = func() ([]net.IP, error) { return nil, errors.New("boom") }
		c.Resolver = nil
		Expect(c.Classify(ctx, "workstation01").Locality).To(Equal(locality.Remote))
		Expect(c.Classify(ctx, "203.0.113.7").Locality).To(Equal(locality.Remote))
		// Aliases and private ranges do not depend on machine facts.
		Expect(c.Classify(ctx, "localhost").Locality).To(Equal(locality.Local))
		Expect(c.Classify(ctx, "10.1.1.1").Locality).To(Equal(locality.Local))
	})

	It("Should classify an empty server name as remote", func() {
		Expect(c.Classify(ctx, "   ").Locality).To(Equal(locality.Remote))
	})

	It("Should be deterministic for the same machine state", func() {
		a := c.Classify(ctx, "edge-sql")
		b := c.Classify(ctx, "edge-sql")
		Expect(a).To(Equal(b))
	})

	It("Should record a trace ending in the decision", func() {
		d := c.Classify(ctx, "8.8.8.8")
		Expect(d.Trace).NotTo(BeEmpty())
		Expect(d.Trace[len(d.Trace)-1]).To(ContainSubstring("=> remote"))
	})
})

var _ = Describe("MachineNameVariants", func() {
	It("Should include short, .local and domain forms", func() {
		Expect(locality.MachineNameVariants("Host1", "Corp.Example.com")).To(Equal(
			[]string{"host1", "host1.local", "host1.corp.example.com"}))
	})

	It("Should derive the domain from a qualified hostname", func() {
		Expect(locality.MachineNameVariants("host1.lab.example.org", "")).To(Equal(
			[]string{"host1.lab.example.org", "host1", "host1.local"}))
	})
})

var _ = Describe("Analyze", func() {
	It("Should include machine facts and the trace", func() {
		r := newTestClassifier().Analyze(context.Background(), "edge-sql")
		Expect(r.Decision.Locality).To(Equal(locality.Local))
		Expect(r.Hostname).To(Equal("WORKSTATION01"))
		Expect(r.ResolvedAddrs).To(Equal([]string{"198.51.100.1", "203.0.113.7"}))
		Expect(r.String()).To(ContainSubstring("Result:      LOCAL (dns)"))
	})
})
