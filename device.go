package pakbus

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Default addressing and protocol constants (spec §6).
const (
	DefaultDestNode      = 0x001
	DefaultSrcNode       = 0x802
	DefaultSecurityCode  = 0x0000
	DefaultTimeout       = 10 * time.Second
	DefaultHelloRetries  = 20
	DefaultSwath         = 0x0200
)

// Config configures a Device (spec §6 defaults).
type Config struct {
	DestNode     uint16
	SrcNode      uint16
	SecurityCode uint16
	Timeout      time.Duration
	HelloRetries int
	Swath        uint16
	Metrics      *Metrics
}

// WithDefaults fills in zero fields with the spec's documented defaults.
func (c Config) WithDefaults() Config {
	if c.DestNode == 0 {
		c.DestNode = DefaultDestNode
	}
	if c.SrcNode == 0 {
		c.SrcNode = DefaultSrcNode
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HelloRetries == 0 {
		c.HelloRetries = DefaultHelloRetries
	}
	if c.Swath == 0 {
		c.Swath = DefaultSwath
	}
	return c
}

// Device is the PakBus client facade (spec §4.8): clock get/set, settings,
// file directory and upload, table definitions, collect-data, programming
// statistics, and bye.
type Device struct {
	transport *Transport
	config    Config
	connected bool

	settings     []SettingsEntry
	settingsDone bool
	tabledef     []TableDef
	tabledefDone bool
}

// NewDevice opens link, performs the attention sequence, and polls up to
// config.HelloRetries Hello attempts, closing and reopening the link between
// failures (spec §4.5 Connect). It fails with ErrNoDevice if none succeed.
func NewDevice(link Link, config Config) (*Device, error) {
	config = config.WithDefaults()
	link.SetTimeout(config.Timeout)
	if err := link.Open(); err != nil {
		return nil, err
	}

	transport := NewTransport(link, config.SrcNode, config.DestNode, config.SecurityCode, config.Metrics)
	if err := transport.Attention(); err != nil {
		return nil, err
	}

	dev := &Device{transport: transport, config: config}

	for i := 0; i < config.HelloRetries; i++ {
		log.WithField("attempt", i+1).Info("pakbus: hello attempt")
		ok, err := dev.pingNode()
		if err == nil && ok {
			dev.connected = true
			break
		}
		if config.Metrics != nil {
			config.Metrics.retries.Inc()
		}
		_ = link.Close()
		if err := link.Open(); err != nil {
			return nil, err
		}
	}
	if !dev.connected {
		return nil, newError(KindNoDevice, "no hello response after %d attempts", config.HelloRetries)
	}
	return dev, nil
}

// sendWait writes cmd and waits for its reply, returning the reply plus the
// estimated one-way transit time (spec §4.5 Send-wait).
func (d *Device) sendWait(cmd []byte, tranID uint8) (Header, Message, time.Duration, error) {
	t0 := time.Now()
	if err := d.transport.Write(cmd); err != nil {
		return Header{}, Message{}, 0, err
	}
	hdr, msg, err := d.transport.WaitFor(tranID)
	t1 := time.Now()
	if d.config.Metrics != nil {
		d.config.Metrics.observeTransaction(err == nil, t1.Sub(t0).Seconds())
	}
	if err != nil {
		return Header{}, Message{}, 0, err
	}
	sendTime := t1.Sub(t0) / 2
	return hdr, msg, sendTime, nil
}

func (d *Device) pingNode() (bool, error) {
	cmd, tranID := d.transport.GetHelloCmd()
	hdr, _, _, err := d.sendWait(cmd, tranID)
	if err != nil {
		return false, newError(KindNoDevice, "%v", err)
	}
	return hdr != Header{}, nil
}

// GetTime returns the device's current wall clock, minus the estimated
// one-way transit delay (spec §4.8).
func (d *Device) GetTime() (time.Time, error) {
	if _, err := d.pingNode(); err != nil {
		return time.Time{}, err
	}
	cmd, tranID := d.transport.GetClockCmd(NSecValue{})
	_, msg, sendTime, err := d.sendWait(cmd, tranID)
	if err != nil {
		return time.Time{}, err
	}
	clock := msg.Body.(*ClockResponse)
	return NsecToTime(clock.Time).Add(-sendTime), nil
}

// SetTime sets the device clock to t and returns the new current time minus
// the sum of both observed transit delays (spec §4.8).
func (d *Device) SetTime(t time.Time) (time.Time, error) {
	current, err := d.GetTime()
	if err != nil {
		return time.Time{}, err
	}
	if _, err := d.pingNode(); err != nil {
		return time.Time{}, err
	}
	diff := t.Sub(current)
	adjustment := NSecValue{Sec: int32(diff / time.Second)}

	cmd1, tran1 := d.transport.GetClockCmd(adjustment)
	_, _, sdt1, err := d.sendWait(cmd1, tran1)
	if err != nil {
		return time.Time{}, err
	}

	cmd2, tran2 := d.transport.GetClockCmd(NSecValue{})
	_, msg2, sdt2, err := d.sendWait(cmd2, tran2)
	if err != nil {
		return time.Time{}, err
	}
	clock := msg2.Body.(*ClockResponse)
	return NsecToTime(clock.Time).Add(-(sdt1 + sdt2)), nil
}

// GetSettings returns the device's settings list, fetched once and cached
// for the lifetime of the Device (spec §3, §4.8, §9).
func (d *Device) GetSettings() ([]SettingsEntry, error) {
	if d.settingsDone {
		return d.settings, nil
	}
	if _, err := d.pingNode(); err != nil {
		return nil, err
	}
	cmd, tranID := d.transport.GetGetSettingsCmd()
	_, msg, _, err := d.sendWait(cmd, tranID)
	if err != nil {
		return nil, err
	}
	resp := msg.Body.(*GetSettingsResponse)
	d.settings = resp.Settings
	d.settingsDone = true
	return d.settings, nil
}

// GetFile uploads filename in Config.Swath-sized chunks until the device
// signals end-of-file (empty FileData) or denies access (RespCode == 1)
// (spec §4.8 getfile).
func (d *Device) GetFile(filename string) ([]byte, error) {
	if _, err := d.pingNode(); err != nil {
		return nil, err
	}
	var data []byte
	var offset uint32
	var tranID uint8
	for {
		cmd, usedTran := d.transport.GetFileUploadCmd(filename, offset, d.config.Swath, 0x00, tranID)
		tranID = usedTran
		_, msg, _, err := d.sendWait(cmd, tranID)
		if err != nil {
			return nil, err
		}
		resp := msg.Body.(*FileUploadResponse)
		if resp.RespCode == 1 {
			return nil, newError(KindPermissionDenied, "file upload denied for %q", filename)
		}
		if len(resp.FileData) == 0 {
			break
		}
		data = append(data, resp.FileData...)
		offset += uint32(len(resp.FileData))
	}
	return data, nil
}

// SendFile is not implemented: device-side file writes are a spec Non-goal.
func (d *Device) SendFile(data []byte, filename string) error {
	return fmt.Errorf("pakbus: file download (device-side write) is not implemented")
}

// ListFiles lists the file names present on the device's .DIR directory.
func (d *Device) ListFiles() ([]string, error) {
	data, err := d.GetFile(".DIR")
	if err != nil {
		return nil, err
	}
	fd, err := ParseFileDirectory(data)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(fd.Files))
	for _, f := range fd.Files {
		names = append(names, f.FileName)
	}
	return names, nil
}

// TableDef returns the cached .TDF table definitions, fetching and parsing
// them on first use (spec §3, §4.8, §9).
func (d *Device) TableDef() ([]TableDef, error) {
	if d.tabledefDone {
		return d.tabledef, nil
	}
	data, err := d.GetFile(".TDF")
	if err != nil {
		return nil, err
	}
	tabledef, err := ParseTableDef(data)
	if err != nil {
		return nil, err
	}
	d.tabledef = tabledef
	d.tabledefDone = true
	return d.tabledef, nil
}

// ListTables returns the names of the tables present on the device.
func (d *Device) ListTables() ([]string, error) {
	tabledef, err := d.TableDef()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tabledef))
	for _, t := range tabledef {
		names = append(names, t.Header.TableName)
	}
	return names, nil
}

func (d *Device) tableNumber(tablename string) (int, uint16, error) {
	tabledef, err := d.TableDef()
	if err != nil {
		return 0, 0, err
	}
	for i, item := range tabledef {
		if item.Header.TableName == tablename {
			return i + 1, item.Signature, nil
		}
	}
	return 0, 0, newError(KindBadData, "table %q not found", tablename)
}

// collectData issues one CollectData round-trip for tablename and parses
// the reply against the cached TableDef (spec §4.7, §4.8 internal helper
// matching the original's `_collect_data`).
func (d *Device) collectData(tablename string, start, stop *time.Time) ([]RecordFragment, bool, error) {
	tableNbr, sig, err := d.tableNumber(tablename)
	if err != nil {
		return nil, false, err
	}
	tabledef, err := d.TableDef()
	if err != nil {
		return nil, false, err
	}

	var mode uint8
	var p1, p2 interface{}
	if start != nil {
		mode = ModeTimeRange
		p1 = TimeToNsec(*start)
		stopT := time.Now()
		if stop != nil {
			stopT = *stop
		}
		p2 = TimeToNsec(stopT)
	} else {
		mode = ModeCollectAll
		p1 = NSecValue{}
		p2 = NSecValue{}
	}

	cmd, tranID := d.transport.GetCollectDataCmd(uint16(tableNbr), sig, mode, p1, p2)
	_, msg, _, err := d.sendWait(cmd, tranID)
	if err != nil {
		return nil, false, err
	}
	resp := msg.Body.(*CollectDataResponse)
	return ParseCollectData(resp.RecData, tabledef)
}

// Record is one reconstructed row of a table, produced by GetData /
// GetDataStream (spec §3 data model).
type Record struct {
	Datetime time.Time
	RecNbr   uint32
	Fields   map[string]interface{}
}

// GetData collects every record of tablename between start and stop
// (defaulting to 1990-01-01 00:00:01 and now, spec §4.8) and returns them
// all at once, sorted by Datetime.
func (d *Device) GetData(tablename string, start, stop *time.Time) ([]Record, error) {
	var all []Record
	for batch := range d.GetDataStream(tablename, start, stop) {
		if batch.Err != nil {
			return nil, batch.Err
		}
		all = append(all, batch.Records...)
	}
	return all, nil
}

// RecordBatch is one page of records yielded by GetDataStream, or a
// terminal error.
type RecordBatch struct {
	Records []Record
	Err     error
}

// GetDataStream mirrors the original's get_data_generator: it re-issues
// CollectData with mode 0x07 (time range), advancing the lower bound to the
// last emitted record's time, and never re-emits the final record of a
// batch that still has more data pending -- that record reappears as the
// next request's lower bound (spec §4.7).
func (d *Device) GetDataStream(tablename string, start, stop *time.Time) <-chan RecordBatch {
	out := make(chan RecordBatch)
	go func() {
		defer close(out)
		if _, err := d.pingNode(); err != nil {
			out <- RecordBatch{Err: err}
			return
		}
		startDate := time.Date(1990, 1, 1, 0, 0, 1, 0, time.UTC)
		if start != nil {
			startDate = *start
		}
		stopDate := time.Now()
		if stop != nil {
			stopDate = *stop
		}

		more := true
		for more {
			frags, fragsMore, err := d.collectData(tablename, &startDate, &stopDate)
			if err != nil {
				out <- RecordBatch{Err: err}
				return
			}
			more = fragsMore

			var batch []Record
			for i, frag := range frags {
				if frag.NbrOfRecs == 0 {
					more = false
					break
				}
				for j, rec := range frag.Records {
					if rec.TimeOfRec.Sec < TimeToNsec(startDate).Sec && i == 0 && j == 0 {
						continue
					}
					t := NsecToTime(rec.TimeOfRec)
					if t.Before(startDate) || t.After(stopDate) {
						continue
					}
					startDate = t
					isLastOverall := more && j == len(frag.Records)-1 && i == len(frags)-1
					if isLastOverall {
						// avoid duplicating the boundary record, which will
						// reappear as the next request's lower bound.
						break
					}
					batch = append(batch, Record{
						Datetime: t,
						RecNbr:   rec.RecNbr,
						Fields:   rec.Fields,
					})
				}
			}
			if len(batch) == 0 {
				more = false
				continue
			}
			out <- RecordBatch{Records: batch}
		}
	}()
	return out
}

// GetRawPackets returns the undecoded CollectData fragments for tablename,
// without date filtering -- useful for debugging a TableDef mismatch. This
// operation was present in the original implementation's get_raw_packets
// but dropped by the distillation; it is not excluded by any Non-goal, so
// it is carried here (spec SPEC_FULL.md DeviceFacade).
func (d *Device) GetRawPackets(tablename string) ([]RecordFragment, error) {
	if _, err := d.pingNode(); err != nil {
		return nil, err
	}
	var all []RecordFragment
	more := true
	for more {
		frags, fragsMore, err := d.collectData(tablename, nil, nil)
		if err != nil {
			return nil, err
		}
		more = fragsMore
		all = append(all, frags...)
	}
	return all, nil
}

// GetProgStat fetches programming statistics. CompTime is returned as the
// device's NSecValue; it is not converted to a time.Time here (NsecToTime
// does that conversion).
func (d *Device) GetProgStat() (*ProgStat, error) {
	if _, err := d.pingNode(); err != nil {
		return nil, err
	}
	cmd, tranID := d.transport.GetGetProgStatCmd()
	_, msg, _, err := d.sendWait(cmd, tranID)
	if err != nil {
		return nil, err
	}
	resp := msg.Body.(*GetProgStatResponse)
	return resp.Stats, nil
}

// Bye sends a Bye message on a still-connected link; idempotent (spec
// §4.8).
func (d *Device) Bye() error {
	if !d.connected {
		return nil
	}
	log.Info("pakbus: sending bye")
	cmd, _ := d.transport.GetByeCmd()
	err := d.transport.Write(cmd)
	d.connected = false
	return err
}

// Close sends Bye (if still connected) and closes the underlying link.
func (d *Device) Close() error {
	_ = d.Bye()
	return d.transport.Link.Close()
}
