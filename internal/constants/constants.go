package constants

// Boolean string values
const (
	BoolTrue  = "true"
	BoolFalse = "false"
	BoolYes   = "yes"
	BoolNo    = "no"
	BoolOne   = "1"
	BoolZero  = "0"
)

// Backlink defaults
const (
	DefaultBacklinkThreshold = 0.7
	DefaultBacklinkLimit     = 3
)

// Magic numbers for various operations
const (
	// Display limits
	DefaultListLimit = 20

	// Text truncation lengths
	PreviewLength      = 100
	ShortPreviewLength = 60

	// Embedding calculations
	BytesPerFloat64  = 8
	HashMultiplier   = 31
	HashModulo       = 100
	DefaultDimension = 384

	// Tagging
	DefaultMaxAutoTags = 4
	MinTagLength       = 3
	MaxTagLength       = 40
)

// Note ids
const (
	NoteIDPrefix = "summary_"
)

// File names and permissions
const (
	StoreFileName      = "db.json"
	CacheFileName      = "embeddings.db"
	ConfigFileMode     = 0600 // Secure file permissions for config
	StoreFileMode      = 0644
	DirectoryMode      = 0755
	AtomicTempPrefix   = ".meetnotes-tmp-"
	StoreIndentPadding = "    "
)
