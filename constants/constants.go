package constants

// Application

const (
	AppName                       = "dbcop"
	ConfigDirName                 = ".dbcop"
	EnvVarPrefix                  = "DBCOP" // prefixed for environment variables in twelveFactorMode
	EnvVarTwelveFactorMode        = EnvVarPrefix + "_12FACTOR_MODE"
	EnvVarConnectionPrefix        = EnvVarPrefix + "_CONN_"
	TimeFormatYearSeconds         = "20060102_150405" // used for human readable file names
	ArtifactFilePrefix            = "DatabaseSync_"
	LogFilePrefix                 = "DatabaseSync_Log_"
	ConnectionTypeSqlServer       = "sqlserver"
	AdminDatabaseName             = "master"
	SourceTestTimeoutSeconds      = 5
	AdminTimeoutSeconds           = 30
	ToolCommandTimeoutSeconds     = 300
	ToolOutputFlushMillis         = 500
	ToolKillGraceSeconds          = 5
	ToolPathCacheExpiryHours      = 24
	DNSLookupTimeoutSeconds       = 2
	ProgressStart                 = 0
	ProgressPreflightDone         = 10
	ProgressStepOneDone           = 60
	ProgressComplete              = 100
	ConnectionExportFileExtension = ".json"
	ListDatabasesMinDatabaseID    = 4 // system databases have ids 1 to 4
)
