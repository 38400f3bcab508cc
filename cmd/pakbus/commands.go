package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	gopakbus "github.com/LionelDarras/gopakbus"
)

// writeLengthPrefixed appends one protobuf-encoded Record to f, prefixed
// with its length as a little-endian uint32, so getdata's output file is a
// simple streamable record log.
func writeLengthPrefixed(f *os.File, rec gopakbus.Record) error {
	body := gopakbus.EncodeRecord(rec)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := f.Write(body)
	return err
}

type gettimeCmd struct{}

func (c *gettimeCmd) Execute(args []string) error {
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	t, err := dev.GetTime()
	if err != nil {
		return err
	}
	fmt.Println(t.Format(time.RFC3339))
	return nil
}

type settimeCmd struct {
	Positional struct {
		Timestamp string `positional-arg-name:"timestamp" description:"RFC3339 timestamp to set"`
	} `positional-args:"yes" required:"yes"`
}

func (c *settimeCmd) Execute(args []string) error {
	t, err := time.Parse(time.RFC3339, c.Positional.Timestamp)
	if err != nil {
		return fmt.Errorf("parsing timestamp: %w", err)
	}
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	newTime, err := dev.SetTime(t)
	if err != nil {
		return err
	}
	fmt.Println(newTime.Format(time.RFC3339))
	return nil
}

type getprogstatCmd struct{}

func (c *getprogstatCmd) Execute(args []string) error {
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	stats, err := dev.GetProgStat()
	if err != nil {
		return err
	}
	return printJSON(stats)
}

type getsettingsCmd struct{}

func (c *getsettingsCmd) Execute(args []string) error {
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	settings, err := dev.GetSettings()
	if err != nil {
		return err
	}
	return printJSON(settings)
}

type listfilesCmd struct{}

func (c *listfilesCmd) Execute(args []string) error {
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	names, err := dev.ListFiles()
	if err != nil {
		return err
	}
	return printJSON(names)
}

type getfileCmd struct {
	Positional struct {
		Name string `positional-arg-name:"name" description:"File name on the device, e.g. CPU:program.cr1000"`
		Out  string `positional-arg-name:"out" description:"Local path to write the file contents to"`
	} `positional-args:"yes" required:"yes"`
}

func (c *getfileCmd) Execute(args []string) error {
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	data, err := dev.GetFile(c.Positional.Name)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Positional.Out, data, 0o644)
}

type listtablesCmd struct{}

func (c *listtablesCmd) Execute(args []string) error {
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	names, err := dev.ListTables()
	if err != nil {
		return err
	}
	return printJSON(names)
}

type getdataCmd struct {
	Start string `long:"start" description:"RFC3339 start time, default 1990-01-01"`
	Stop  string `long:"stop" description:"RFC3339 stop time, default now"`

	Positional struct {
		Table string `positional-arg-name:"table" description:"Table name"`
		Out   string `positional-arg-name:"out" description:"Local path to write length-prefixed protobuf records to"`
	} `positional-args:"yes" required:"yes"`
}

func (c *getdataCmd) Execute(args []string) error {
	var start, stop *time.Time
	if c.Start != "" {
		t, err := time.Parse(time.RFC3339, c.Start)
		if err != nil {
			return fmt.Errorf("parsing --start: %w", err)
		}
		start = &t
	}
	if c.Stop != "" {
		t, err := time.Parse(time.RFC3339, c.Stop)
		if err != nil {
			return fmt.Errorf("parsing --stop: %w", err)
		}
		stop = &t
	}

	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()

	f, err := os.Create(c.Positional.Out)
	if err != nil {
		return err
	}
	defer f.Close()

	count := 0
	for batch := range dev.GetDataStream(c.Positional.Table, start, stop) {
		if batch.Err != nil {
			return batch.Err
		}
		for _, rec := range batch.Records {
			if err := writeLengthPrefixed(f, rec); err != nil {
				return err
			}
			count++
		}
		log.WithField("records", count).Debug("pakbus: wrote batch")
	}
	log.WithField("records", count).Info("pakbus: getdata complete")
	return nil
}

type getrawpacketsCmd struct {
	Positional struct {
		Table string `positional-arg-name:"table" description:"Table name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *getrawpacketsCmd) Execute(args []string) error {
	dev, err := connect()
	if err != nil {
		return err
	}
	defer dev.Close()
	frags, err := dev.GetRawPackets(c.Positional.Table)
	if err != nil {
		return err
	}
	return printJSON(frags)
}
