// Package sqlpackage builds SqlPackage command lines.
// Each Command holds the real arguments and a redacted copy that is safe to log.
package sqlpackage

import (
	"fmt"
	"strings"

	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/rdbms/shared"
)

type Action string

const (
	ActionExport  Action = "Export"
	ActionImport  Action = "Import"
	ActionExtract Action = "Extract"
	ActionPublish Action = "Publish"
)

// Command is one SqlPackage invocation.
type Command struct {
	Action   Action
	Args     []string
	Redacted []string
}

// String renders the redacted arguments for logs.
func (c Command) String() string {
	return strings.Join(c.Redacted, " ")
}

// PublishOptions are the deployment switches passed to a Publish action.
type PublishOptions struct {
	BlockOnPossibleDataLoss bool
	DropObjectsNotInSource  bool
	GenerateSmartDefaults   bool // only emitted when set.
	CreateNewDatabase       bool
	AllowIncompatible       bool
}

// SafePublishOptions never loses data and keeps objects that only exist in the target.
func SafePublishOptions() PublishOptions {
	return PublishOptions{
		BlockOnPossibleDataLoss: true,
		DropObjectsNotInSource:  false,
		GenerateSmartDefaults:   true,
		AllowIncompatible:       true,
	}
}

// ForcePublishOptions makes the target schema match the source exactly, whatever the cost.
func ForcePublishOptions() PublishOptions {
	return PublishOptions{
		BlockOnPossibleDataLoss: false,
		DropObjectsNotInSource:  true,
		AllowIncompatible:       true,
	}
}

// builder accumulates real and redacted arguments side by side.
type builder struct {
	args     []string
	redacted []string
}

func (b *builder) add(arg string) {
	b.args = append(b.args, arg)
	b.redacted = append(b.redacted, arg)
}

func (b *builder) addSecret(prefix string, e shared.Endpoint) {
	b.args = append(b.args, prefix+e.ConnectionString())
	b.redacted = append(b.redacted, prefix+e.RedactedConnectionString())
}

func (b *builder) prop(name string, value interface{}) {
	b.add(fmt.Sprintf("/p:%v=%v", name, value))
}

func (b *builder) command(a Action) Command {
	return Command{Action: a, Args: b.args, Redacted: b.redacted}
}

func newBuilder(a Action) *builder {
	b := &builder{}
	b.add("/Action:" + string(a))
	return b
}

func boolValue(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// Export writes schema and data of source to a .bacpac at targetFile.
func Export(source shared.Endpoint, targetFile string) Command {
	b := newBuilder(ActionExport)
	b.addSecret("/SourceConnectionString:", source)
	b.add("/TargetFile:" + targetFile)
	b.prop("CommandTimeout", constants.ToolCommandTimeoutSeconds)
	return b.command(ActionExport)
}

// Import loads the .bacpac at sourceFile into target.
func Import(sourceFile string, target shared.Endpoint) Command {
	b := newBuilder(ActionImport)
	b.add("/SourceFile:" + sourceFile)
	b.addSecret("/TargetConnectionString:", target)
	b.prop("CommandTimeout", constants.ToolCommandTimeoutSeconds)
	return b.command(ActionImport)
}

// Extract writes the schema of source to a .dacpac at targetFile.
func Extract(source shared.Endpoint, targetFile string, extractAllTableData bool) Command {
	b := newBuilder(ActionExtract)
	b.addSecret("/SourceConnectionString:", source)
	b.add("/TargetFile:" + targetFile)
	b.prop("CommandTimeout", constants.ToolCommandTimeoutSeconds)
	if extractAllTableData {
		b.prop("ExtractAllTableData", boolValue(true))
	}
	return b.command(ActionExtract)
}

// Publish deploys the .dacpac at sourceFile to target.
func Publish(sourceFile string, target shared.Endpoint, o PublishOptions) Command {
	b := newBuilder(ActionPublish)
	b.add("/SourceFile:" + sourceFile)
	b.addSecret("/TargetConnectionString:", target)
	b.prop("CommandTimeout", constants.ToolCommandTimeoutSeconds)
	b.prop("CreateNewDatabase", boolValue(o.CreateNewDatabase))
	b.prop("AllowIncompatiblePlatform", boolValue(o.AllowIncompatible))
	b.prop("BlockOnPossibleDataLoss", boolValue(o.BlockOnPossibleDataLoss))
	b.prop("DropObjectsNotInSource", boolValue(o.DropObjectsNotInSource))
	if o.GenerateSmartDefaults {
		b.prop("GenerateSmartDefaults", boolValue(true))
	}
	return b.command(ActionPublish)
}
