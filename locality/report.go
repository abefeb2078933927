package locality

import (
	"context"
	"fmt"
	"strings"
)

// Report is a diagnostic view of one classification and the machine facts behind it.
type Report struct {
	Decision       Decision `json:"decision"`
	Hostname       string   `json:"hostname"`
	NameVariants   []string `json:"nameVariants"`
	InterfaceAddrs []string `json:"interfaceAddresses"`
	ResolvedAddrs  []string `json:"resolvedAddresses"`
	LookupError    string   `json:"lookupError,omitempty"`
}

// Analyze classifies server and gathers the facts an operator needs to understand the result.
func (c *Classifier) Analyze(ctx context.Context, server string) Report {
	r := Report{Decision: c.Classify(ctx, server)}
	if c.Hostname != nil {
		if h, err := c.Hostname(); err == nil {
			r.Hostname = h
			domain := ""
			if c.Domain != nil {
				domain = c.Domain()
			}
			r.NameVariants = MachineNameVariants(h, domain)
		}
	}
	if c.InterfaceAddrs != nil {
		if addrs, err := c.InterfaceAddrs(); err == nil {
			for _, a := range addrs {
				r.InterfaceAddrs = append(r.InterfaceAddrs, a.String())
			}
		}
	}
	if host := r.Decision.Host; host != "" && parseIP(host) == nil {
		addrs, err := c.lookup(ctx, host)
		if err != nil {
			r.LookupError = err.Error()
		}
		for _, a := range addrs {
			r.ResolvedAddrs = append(r.ResolvedAddrs, a.IP.String())
		}
	}
	return r
}

// String renders the report as indented text.
func (r Report) String() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Server:      %v\n", r.Decision.Server)
	fmt.Fprintf(&b, "Host:        %v\n", r.Decision.Host)
	fmt.Fprintf(&b, "Result:      %v (%v)\n", strings.ToUpper(r.Decision.Locality.String()), r.Decision.Rule)
	fmt.Fprintf(&b, "Reason:      %v\n", r.Decision.Detail)
	fmt.Fprintf(&b, "Machine:     %v\n", r.Hostname)
	fmt.Fprintf(&b, "Name forms:  %v\n", strings.Join(r.NameVariants, ", "))
	fmt.Fprintf(&b, "Interfaces:  %v\n", strings.Join(r.InterfaceAddrs, ", "))
	if len(r.ResolvedAddrs) > 0 {
		fmt.Fprintf(&b, "Resolved:    %v\n", strings.Join(r.ResolvedAddrs, ", "))
	}
	if r.LookupError != "" {
		fmt.Fprintf(&b, "DNS error:   %v\n", r.LookupError)
	}
	b.WriteString("Trace:\n")
	for _, t := range r.Decision.Trace {
		fmt.Fprintf(&b, "  - %v\n", t)
	}
	return b.String()
}
