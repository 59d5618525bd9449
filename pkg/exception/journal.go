package exception

import "errors"

var (
	ErrJournalClosed        = errors.New("journal: closed")
	ErrJournalEmptyAccount  = errors.New("journal: empty account identifier")
	ErrJournalNilEvent      = errors.New("journal: nil event")
	ErrJournalCorruptRecord = errors.New("journal: corrupt record")
	ErrJournalChecksum      = errors.New("journal: checksum mismatch")
	ErrJournalSequenceGap   = errors.New("journal: sequence gap")
)
