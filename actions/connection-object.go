package actions

import (
	"strings"
	"sync"
)

// ConnectionDatabase should be constructed with public property ConnectionDatabase set using format:
// <connection>[.<database>]
type ConnectionDatabase struct {
	ConnectionDatabase string `errorTxt:"<connection>.<database>" mandatory:"yes"`
	connection         string
	database           string
	done               bool
	mu                 sync.Mutex
}

func NewConnectionDatabase(s string) *ConnectionDatabase {
	return &ConnectionDatabase{ConnectionDatabase: s}
}

func (c *ConnectionDatabase) GetConnectionName() string {
	c.splitConnectString()
	return c.connection
}

func (c *ConnectionDatabase) GetDatabase() string {
	c.splitConnectString()
	return c.database
}

// splitConnectString splits the input at the first period into connection and database.
// Database names may contain periods but connection names may not.
// If there is no period then the whole string is the connection and the database is "".
func (c *ConnectionDatabase) splitConnectString() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		s := strings.TrimSpace(c.ConnectionDatabase)
		i := strings.Index(s, ".")
		if i > 0 {
			c.connection = s[:i]
			c.database = s[i+1:]
		} else {
			c.connection = s
		}
		if s != "" { // if struct was constructed with a valid ConnectionDatabase...
			c.done = true
		}
	}
}
