package protocol

// Command codes from the wire protocol's command table (spec §6).
const (
	CmdChkProtocol      byte = 0x01
	CmdChkDevice        byte = 0x02
	CmdProgEnd          byte = 0x03
	CmdProgExtFlashBoot byte = 0x04

	CmdFlashSetPageSize byte = 0x10
	CmdFlashGetPageSize byte = 0x11
	CmdFlashWrite       byte = 0x12
	CmdFlashRead        byte = 0x13
	CmdFlashEraseSector byte = 0x15
	CmdFlashEraseAll    byte = 0x16

	CmdEepromSetPageSize byte = 0x20
	CmdEepromGetPageSize byte = 0x21
	CmdEepromWrite       byte = 0x22
	CmdEepromRead        byte = 0x23
	CmdEepromErase       byte = 0x24
	CmdEepromEraseAll    byte = 0x25

	CmdExtFlashFopen byte = 0x30
	CmdExtFlashClose byte = 0x31
	CmdExtFlashWrite byte = 0x32
)
