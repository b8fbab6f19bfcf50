package scope

// Commands holds the command templates of a model. %d placeholders receive
// channel numbers, %s placeholders receive tokens or decimal numbers.
type Commands struct {
	Reset       string
	ClearStatus string
	Identify    string
	Autoscale   string
	Run         string
	Stop        string

	ChannelBandwidthLimit string
	ChannelCoupling       string
	ChannelProbe          string
	ChannelRange          string
	ChannelRangeQuery     string
	ChannelScale          string
	ChannelDisplay        string
	ChannelOffset         string

	TimebaseMode  string
	TimebaseRange string
	TimebaseScale string

	TriggerMode       string
	TriggerSweep      string
	TriggerEdgeLevel  string
	TriggerEdgeSource string
	TriggerEdgeSlope  string
	TriggerHFReject   string
	TriggerNReject    string

	AcquireMode  string
	AcquireCount string

	MeasureVpp    string
	MeasureVmax   string
	MeasureVmin   string
	MeasureVratio string
	MeasurePhase  string
}

// Table translates abstract values to the wire tokens of one model
type Table struct {
	Commands Commands

	Sources       map[Source]string
	Couplings     map[Coupling]string
	AcquireModes  map[AcquireMode]string
	TimebaseModes map[TimebaseMode]string
	TriggerModes  map[TriggerMode]string
	TriggerSweeps map[TriggerSweep]string
	TriggerSlopes map[TriggerSlope]string

	BandwidthLimit map[bool]string
	Display        map[bool]string
	Reject         map[bool]string

	// Envelope reports whether :MEAS:VMAX?/:MEAS:VMIN? are available
	Envelope bool
}

var agilentCommands = Commands{
	Reset:       "*RST",
	ClearStatus: "*CLS",
	Identify:    "*IDN?",
	Autoscale:   ":AUToscale",
	Run:         ":RUN",
	Stop:        ":STOP",

	ChannelBandwidthLimit: ":CHAN%d:BWL %s",
	ChannelCoupling:       ":CHAN%d:COUP %s",
	ChannelProbe:          ":CHAN%d:PROB %s",
	ChannelRange:          ":CHAN%d:RANG %s",
	ChannelRangeQuery:     ":CHAN%d:RANG?",
	ChannelScale:          ":CHAN%d:SCAL %s",
	ChannelDisplay:        ":CHAN%d:DISP %s",
	ChannelOffset:         ":CHAN%d:OFFS %s",

	TimebaseMode:  ":TIMebase:MODE %s",
	TimebaseRange: ":TIMebase:RANGe %s",
	TimebaseScale: ":TIMebase:SCALe %s",

	TriggerMode:       ":TRIG:MODE %s",
	TriggerSweep:      ":TRIG:SWE %s",
	TriggerEdgeLevel:  ":TRIG:EDGE:LEV %s",
	TriggerEdgeSource: ":TRIG:EDGE:SOUR %s",
	TriggerEdgeSlope:  ":TRIG:EDGE:SLOP %s",
	TriggerHFReject:   ":TRIG:HFR %s",
	TriggerNReject:    ":TRIG:NREJ %s",

	AcquireMode:  ":ACQuire:TYPE %s",
	AcquireCount: ":ACQuire:COUNt %s",

	MeasureVpp:    ":MEAS:VPP? %s",
	MeasureVmax:   ":MEAS:VMAX? %s",
	MeasureVmin:   ":MEAS:VMIN? %s",
	MeasureVratio: ":MEAS:VRAT? %s, %s",
	MeasurePhase:  ":MEAS:PHAS? %s, %s",
}

var onOff = map[bool]string{true: "1", false: "0"}

// AgilentDSO6000 covers the Agilent DSO6000 and DSO7000 series
var AgilentDSO6000 = &Table{
	Commands: agilentCommands,

	Sources: map[Source]string{
		SourceChannel1: "CHANnel1",
		SourceChannel2: "CHANnel2",
		SourceChannel3: "CHANnel3",
		SourceChannel4: "CHANnel4",
		SourceExternal: "EXTernal",
		SourceLine:     "LINE",
		SourceMath:     "MATH",
		SourceFunction: "FUNCtion",
	},
	Couplings: map[Coupling]string{
		CouplingAC: "AC",
		CouplingDC: "DC",
	},
	AcquireModes: map[AcquireMode]string{
		AcquireNormal:         "NORMal",
		AcquireAverage:        "AVERage",
		AcquireHighResolution: "HRESolution",
		AcquirePeakDetect:     "PEAK",
	},
	TimebaseModes: map[TimebaseMode]string{
		TimebaseMain:    "MAIN",
		TimebaseDelayed: "WINDow",
		TimebaseXY:      "XY",
		TimebaseRoll:    "ROLL",
	},
	TriggerModes: map[TriggerMode]string{
		TriggerEdge: "EDGE",
	},
	TriggerSweeps: map[TriggerSweep]string{
		SweepAuto:   "AUTO",
		SweepNormal: "NORMal",
	},
	TriggerSlopes: map[TriggerSlope]string{
		SlopeNegative:  "NEGative",
		SlopePositive:  "POSitive",
		SlopeEither:    "EITHer",
		SlopeAlternate: "ALTernate",
	},

	BandwidthLimit: onOff,
	Display:        onOff,
	Reject:         onOff,

	Envelope: true,
}

// RigolDS4000 overrides the tokens where the Rigol DS4000 series differs
var RigolDS4000 = func() *Table {
	t := *AgilentDSO6000

	t.Commands.AcquireCount = ":ACQuire:AVERages %s"

	t.BandwidthLimit = map[bool]string{true: "20M", false: "OFF"}
	t.TimebaseModes = map[TimebaseMode]string{
		TimebaseMain:    "MAIN",
		TimebaseDelayed: "DELayed",
		TimebaseXY:      "XY",
		TimebaseRoll:    "ROLL",
	}
	t.TriggerSlopes = map[TriggerSlope]string{
		SlopeNegative: "NEGative",
		SlopePositive: "POSitive",
		SlopeEither:   "RFALl",
	}
	return &t
}()
