package cli

// Flags holds all command-line flag values
type Flags struct {
	// Global flags
	CfgFile string
	EnvFile string

	// translate
	From string
	To   string

	// break, speak
	Language string

	// names
	Locale string

	// speak
	OutFile string
	Format  string

	// serve
	Port string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Locale: "en",
	}
}
