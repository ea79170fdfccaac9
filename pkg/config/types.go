package config

import "github.com/GoSim-25-26J-441/nlo-screen/pkg/models"

// Config represents the screening configuration
type Config struct {
	LogLevel  string                `json:"log_level" yaml:"log_level"`
	LogFormat string                `json:"log_format,omitempty" yaml:"log_format,omitempty"`
	Materials []models.MaterialSpec `json:"materials,omitempty" yaml:"materials,omitempty"`
	Sweep     *Sweep                `json:"sweep,omitempty" yaml:"sweep,omitempty"`
	Scorer    Scorer                `json:"scorer" yaml:"scorer"`
	Search    Search                `json:"search" yaml:"search"`
	Server    Server                `json:"server" yaml:"server"`
}

// Sweep overrides the intensity sweep and device footprint
type Sweep struct {
	MinIntensity  float64 `json:"min_intensity_w_m2" yaml:"min_intensity_w_m2"`
	MaxIntensity  float64 `json:"max_intensity_w_m2" yaml:"max_intensity_w_m2"`
	Points        int     `json:"points" yaml:"points"`
	DeviceAreaUm2 float64 `json:"device_area_um2,omitempty" yaml:"device_area_um2,omitempty"`
}

// Scorer selects the objective and its weights
type Scorer struct {
	Objective string   `json:"objective" yaml:"objective"`
	Weights   *Weights `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Weights are figure-of-merit exponents; unset fields keep their defaults
type Weights struct {
	Contrast     *float64 `json:"contrast,omitempty" yaml:"contrast,omitempty"`
	Transmission *float64 `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	Energy       *float64 `json:"energy,omitempty" yaml:"energy,omitempty"`
	ResponseTime *float64 `json:"response_time,omitempty" yaml:"response_time,omitempty"`
}

// Search describes the configuration space and how to walk it
type Search struct {
	Strategy            string                `json:"strategy" yaml:"strategy"`
	Materials           []string              `json:"materials,omitempty" yaml:"materials,omitempty"`
	Sourcing            []models.Sourcing     `json:"sourcing,omitempty" yaml:"sourcing,omitempty"`
	Layers              []int                 `json:"layers,omitempty" yaml:"layers,omitempty"`
	WavelengthsNm       []float64             `json:"wavelengths_nm,omitempty" yaml:"wavelengths_nm,omitempty"`
	Q                   []float64             `json:"q,omitempty" yaml:"q,omitempty"`
	Gamma               []float64             `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	InteractionLengthUm float64               `json:"interaction_length_um,omitempty" yaml:"interaction_length_um,omitempty"`
	Samples             int                   `json:"samples,omitempty" yaml:"samples,omitempty"`
	Seed                int64                 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Workers             int                   `json:"workers,omitempty" yaml:"workers,omitempty"`
	Patience            int                   `json:"patience,omitempty" yaml:"patience,omitempty"`
	KeepCurves          bool                  `json:"keep_curves,omitempty" yaml:"keep_curves,omitempty"`
	Candidates          []models.DeviceConfig `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// Server holds the listen addresses and request policies of the daemon
type Server struct {
	HTTPAddr  string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr  string         `json:"grpc_addr" yaml:"grpc_addr"`
	RateLimit *RateLimit     `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Callbacks *CallbackRetry `json:"callbacks,omitempty" yaml:"callbacks,omitempty"`
}

// RateLimit bounds how fast one client may submit simulations and searches
type RateLimit struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	RequestsPerSecond int  `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// CallbackRetry controls redelivery of search completion callbacks
type CallbackRetry struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries"`
	Backoff    string `json:"backoff" yaml:"backoff"` // exponential, linear, constant
	BaseMs     int    `json:"base_ms" yaml:"base_ms"`
}

// Strategy names accepted in search.strategy
const (
	StrategyGrid   = "grid"
	StrategyRandom = "random"
	StrategyList   = "list"
)

// Objective names accepted in scorer.objective
const (
	ObjectiveFigureOfMerit     = "figure_of_merit"
	ObjectiveContrastPerEnergy = "contrast_per_energy"
)

// Defaults applied to unset fields
var (
	DefaultLayers        = []int{1, 2, 3, 4, 5}
	DefaultWavelengthsNm = []float64{1300, 1450, 1600}
	DefaultQ             = []float64{10, 100, 1000}
	DefaultGamma         = []float64{0.05, 0.25, 0.5}
	DefaultSourcing      = []models.Sourcing{models.SourcingCommercial}
)

// Backoff names accepted in server.callbacks.backoff
const (
	BackoffExponential = "exponential"
	BackoffLinear      = "linear"
	BackoffConstant    = "constant"
)

const (
	DefaultSamples  = 50
	DefaultSeed     = 42
	DefaultHTTPAddr = ":8080"
	DefaultGRPCAddr = ":50051"
)
