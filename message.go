package pakbus

// Message type codes (spec §4.4). Requests and responses share a msg_type
// byte immediately following the header; PakCtrl and BMP5 each define their
// own numbering.
const (
	msgHello           = 0x09
	msgHelloResponse   = 0x89
	msgFailure         = 0x81
	msgGetSettings     = 0x0F
	msgGetSettingsResp = 0x8F
	msgClock           = 0x17
	msgClockResp       = 0x97
	msgGetProgStat     = 0x18
	msgGetProgStatResp = 0x98
	msgFileUpload      = 0x1D
	msgFileUploadResp  = 0x9D
	msgCollectData     = 0x09 // BMP5 namespace; distinct from PakCtrl Hello
	msgCollectDataResp = 0x89
	msgBye             = 0x0D
	msgPleaseWaitResp  = 0xA1
)

// Collect-data collection modes (spec §4.4).
const (
	ModeCollectAll  = 0x03
	ModeTimeRange   = 0x07
	modeP1Only1     = 0x04
	modeP1Only2     = 0x05
	modeP1P2UInt4a  = 0x06
	modeP1P2UInt4b  = 0x08
)

// HelloResponse is the decoded body of a Hello/HelloResponse message.
type HelloResponse struct {
	IsRouter   uint8
	HopMetric  uint8
	VerifyIntv uint16
}

// FailureResponse is the decoded body of a 0x81 Failure message.
type FailureResponse struct {
	ErrCode uint8
}

// SettingsEntry is one device setting (spec §3 data model).
type SettingsEntry struct {
	SettingID    uint16
	SettingValue []byte
	LargeValue   bool
	ReadOnly     bool
}

// GetSettingsResponse is the decoded body of a GetSettings reply.
type GetSettingsResponse struct {
	Outcome      uint8
	DeviceType   uint16
	MajorVersion uint8
	MinorVersion uint8
	MoreSettings uint8
	Settings     []SettingsEntry
}

// ClockResponse is the decoded body of a Clock reply.
type ClockResponse struct {
	RespCode uint8
	Time     NSecValue
}

// ProgStat is the programming-statistics record (spec §4.4 GetProgStat).
type ProgStat struct {
	OSVer      string
	OSSig      uint16
	SerialNbr  string
	PowUpProg  string
	CompState  uint8
	ProgName   string
	ProgSig    uint16
	CompTime   NSecValue
	CompResult string
}

// GetProgStatResponse is the decoded body of a GetProgStat reply.
type GetProgStatResponse struct {
	RespCode uint8
	Stats    *ProgStat
}

// CollectDataResponse is the decoded body of a CollectData reply. RecData is
// handed to ParseCollectData against the cached TableDef.
type CollectDataResponse struct {
	RespCode uint8
	RecData  []byte
}

// FileUploadResponse is the decoded body of a FileUpload reply.
type FileUploadResponse struct {
	RespCode   uint8
	FileOffset uint32
	FileData   []byte
}

// PleaseWaitResponse is the decoded body of a 0xA1 PleaseWait message.
type PleaseWaitResponse struct {
	CmdMsgType uint8
	WaitSec    uint16
}

// Message is a decoded PakBus message: the common MsgType/TranNbr prefix
// plus a type-specific Body (one of the *Response structs above, or nil if
// the (HiProto, MsgType) pair had no decoder).
type Message struct {
	MsgType uint8
	TranNbr uint8
	Raw     []byte
	Body    interface{}
}

// DecodePacket splits a raw, designified packet into its Header and decoded
// Message (spec §4.4's parse_X table, dispatched by HiProtoCode/MsgType as
// the original's decode_packet does).
func DecodePacket(data []byte) (Header, Message, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return Header{}, Message{}, err
	}
	body := data[HeaderSize:]
	if len(body) < 2 {
		return Header{}, Message{}, newError(KindBadData, "message: need 2 bytes, got %d", len(body))
	}
	msg := Message{MsgType: body[0], TranNbr: body[1], Raw: body[2:]}

	switch {
	case hdr.HiProtoCode == HiProtoPakCtrl && (msg.MsgType == msgHello || msg.MsgType == msgHelloResponse):
		b, err := parseHelloResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	case hdr.HiProtoCode == HiProtoPakCtrl && msg.MsgType == msgFailure:
		b, err := parseFailureResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	case hdr.HiProtoCode == HiProtoPakCtrl && msg.MsgType == msgGetSettingsResp:
		b, err := parseGetSettingsResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	case hdr.HiProtoCode == HiProtoBMP5 && msg.MsgType == msgCollectDataResp:
		b, err := parseCollectDataResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	case hdr.HiProtoCode == HiProtoBMP5 && msg.MsgType == msgClockResp:
		b, err := parseClockResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	case hdr.HiProtoCode == HiProtoBMP5 && msg.MsgType == msgGetProgStatResp:
		b, err := parseGetProgStatResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	case hdr.HiProtoCode == HiProtoBMP5 && msg.MsgType == msgFileUploadResp:
		b, err := parseFileUploadResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	case hdr.HiProtoCode == HiProtoBMP5 && msg.MsgType == msgPleaseWaitResp:
		b, err := parsePleaseWaitResponse(msg.Raw)
		if err != nil {
			return hdr, msg, err
		}
		msg.Body = b
	default:
		return hdr, msg, newError(KindProtocolUnsupported,
			"no implementation for (hi_proto=%#x, msg_type=%#x)", hdr.HiProtoCode, msg.MsgType)
	}
	return hdr, msg, nil
}

func parseHelloResponse(raw []byte) (*HelloResponse, error) {
	values, _, err := DecodeValues([]DataType{Byte, Byte, UInt2}, raw, 0)
	if err != nil {
		return nil, err
	}
	return &HelloResponse{
		IsRouter:   uint8(values[0].(uint64)),
		HopMetric:  uint8(values[1].(uint64)),
		VerifyIntv: uint16(values[2].(uint64)),
	}, nil
}

func parseFailureResponse(raw []byte) (*FailureResponse, error) {
	values, _, err := DecodeValues([]DataType{Byte}, raw, 0)
	if err != nil {
		return nil, err
	}
	return &FailureResponse{ErrCode: uint8(values[0].(uint64))}, nil
}

func parseGetSettingsResponse(raw []byte) (*GetSettingsResponse, error) {
	values, n, err := DecodeValues([]DataType{Byte}, raw, 0)
	if err != nil {
		return nil, err
	}
	resp := &GetSettingsResponse{Outcome: uint8(values[0].(uint64))}
	offset := n
	if resp.Outcome != 0x01 {
		return resp, nil
	}
	values, n, err = DecodeValues([]DataType{UInt2, Byte, Byte, Byte}, raw[offset:], 0)
	if err != nil {
		return nil, err
	}
	resp.DeviceType = uint16(values[0].(uint64))
	resp.MajorVersion = uint8(values[1].(uint64))
	resp.MinorVersion = uint8(values[2].(uint64))
	resp.MoreSettings = uint8(values[3].(uint64))
	offset += n

	for offset < len(raw) {
		values, n, err = DecodeValues([]DataType{UInt2}, raw[offset:], 0)
		if err != nil {
			return nil, err
		}
		settingID := uint16(values[0].(uint64))
		offset += n
		if offset >= len(raw) {
			break
		}
		values, n, err = DecodeValues([]DataType{UInt2}, raw[offset:], 0)
		if err != nil {
			return nil, err
		}
		bit16 := uint16(values[0].(uint64))
		offset += n
		largeValue := bit16&0x8000 != 0
		readOnly := bit16&0x4000 != 0
		settingLen := int(bit16 & 0x3FFF)
		if offset+settingLen > len(raw) {
			return nil, newError(KindBadData, "getsettings: setting value truncated")
		}
		value := make([]byte, settingLen)
		copy(value, raw[offset:offset+settingLen])
		offset += settingLen
		resp.Settings = append(resp.Settings, SettingsEntry{
			SettingID:    settingID,
			SettingValue: value,
			LargeValue:   largeValue,
			ReadOnly:     readOnly,
		})
	}
	return resp, nil
}

func parseClockResponse(raw []byte) (*ClockResponse, error) {
	values, _, err := DecodeValues([]DataType{Byte, NSec}, raw, 0)
	if err != nil {
		return nil, err
	}
	return &ClockResponse{
		RespCode: uint8(values[0].(uint64)),
		Time:     values[1].(NSecValue),
	}, nil
}

func parseGetProgStatResponse(raw []byte) (*GetProgStatResponse, error) {
	values, _, err := DecodeValues([]DataType{Byte}, raw, 0)
	if err != nil {
		return nil, err
	}
	resp := &GetProgStatResponse{RespCode: uint8(values[0].(uint64))}
	if resp.RespCode != 0 {
		return resp, nil
	}
	// The stats block starts directly after the one-byte RespCode.
	types := []DataType{ASCIIZ, UInt2, ASCIIZ, ASCIIZ, Byte, ASCIIZ, UInt2, NSec, ASCIIZ}
	if len(raw) < 1 {
		return nil, newError(KindBadData, "getprogstat: truncated stats block")
	}
	values, _, err = DecodeValues(types, raw[1:], 0)
	if err != nil {
		return nil, err
	}
	resp.Stats = &ProgStat{
		OSVer:      values[0].(string),
		OSSig:      uint16(values[1].(uint64)),
		SerialNbr:  values[2].(string),
		PowUpProg:  values[3].(string),
		CompState:  uint8(values[4].(uint64)),
		ProgName:   values[5].(string),
		ProgSig:    uint16(values[6].(uint64)),
		CompTime:   values[7].(NSecValue),
		CompResult: values[8].(string),
	}
	return resp, nil
}

func parseCollectDataResponse(raw []byte) (*CollectDataResponse, error) {
	values, n, err := DecodeValues([]DataType{Byte}, raw, 0)
	if err != nil {
		return nil, err
	}
	return &CollectDataResponse{
		RespCode: uint8(values[0].(uint64)),
		RecData:  raw[n:],
	}, nil
}

func parseFileUploadResponse(raw []byte) (*FileUploadResponse, error) {
	values, n, err := DecodeValues([]DataType{Byte, UInt4}, raw, 0)
	if err != nil {
		return nil, err
	}
	return &FileUploadResponse{
		RespCode:   uint8(values[0].(uint64)),
		FileOffset: uint32(values[1].(uint64)),
		FileData:   raw[n:],
	}, nil
}

func parsePleaseWaitResponse(raw []byte) (*PleaseWaitResponse, error) {
	values, _, err := DecodeValues([]DataType{Byte, UInt2}, raw, 0)
	if err != nil {
		return nil, err
	}
	return &PleaseWaitResponse{
		CmdMsgType: uint8(values[0].(uint64)),
		WaitSec:    uint16(values[1].(uint64)),
	}, nil
}
