// Package i18n holds the user-visible strings in English and Polish.
//
// Keys are the English format strings. Polish is the default language.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	NoAPIKey          = "No API key set. Use /key or `mdpilot set-key`."
	Busy              = "A request is already running."
	NothingToProcess  = "Nothing to process."
	StreamError       = "Stream error: %s"
	StreamStopped     = "Stopped."
	QueueStopped      = "Queue stopped."
	BatchFailed       = "Batch ended after an unexpected error: %v"
	FileSaved         = "Saved %s"
	FileSaveError     = "Could not save %s: %v"
	NoOutputFolder    = "No output folder selected."
	NoBlocks          = "No documents found in this answer."
	Copied            = "Copied to clipboard."
	CopyFailed        = "Could not copy: %v"
	SettingsSaveError = "Could not save settings: %v"
	FilesLoaded       = "Loaded %d file(s)."
	FilesLoadError    = "Could not read files: %v"
	ItemsImported     = "Imported %d item(s)."
	ItemsImportError  = "Could not import list: %v"
	QueueAdded        = "Added to queue (%d waiting)."
	ListReplaced      = "List replaced (%d items)."
	UnknownCommand    = "Unknown command: %s"
	InvalidArgument   = "/%s: %v"
	ModeSet           = "Mode: %s"
	ModelSet          = "Model: %s"
	ProviderSet       = "Provider: %s"
	UnknownProvider   = "Unknown provider %q (available: %s)"
	TemperatureSet    = "Temperature: %.2f"
	LanguageSet       = "Language: English"
	KeySaved          = "API key set for %s."
	FolderSet         = "Output folder: %s"
	FileRemoved       = "Removed %s"
	FilesCleared      = "All files unloaded."
	QueueRemoved      = "Removed from queue."
	QueueCleared      = "Queue cleared."
	ItemAdded         = "Item added (%d on the list)."
	ItemUpdated       = "Item %d updated."
	ListCleared       = "List cleared."
	TemplateSet       = "Template set."
	ConversationClear = "Conversation cleared."
	HistoryExported   = "History exported to %s"
	HistoryDisabled   = "History is not stored. Enable restore_history in config.toml."
	NoAnswer          = "There is no answer yet."
	NoMatches         = "No matches for %q."
	ModelsLoadError   = "Could not list models: %v"
	ConfirmClearTitle = "Clear conversation"
	ConfirmClear      = "Delete all %d messages?"
	ToggleOn          = "%s: on"
	ToggleOff         = "%s: off"

	StatusStreaming   = "Streaming..."
	StatusCooldown    = "Next request in %ds"
	StatusFile        = "File %d of %d: %s"
	StatusListItem    = "Item %d of %d: %s"
	StatusQueue       = "Prompt %d of %d"
	StatusIdle        = "Ready"
	EmptyConversation = "Load Markdown files and type an instruction."
	NoFolderSelected  = "no output folder"
	HistoryOn         = "history on"
	HistoryOff        = "history off"
	AutoSaveOn        = "auto-save on"
	AutoSaveOff       = "auto-save off"
	InputPlaceholder  = "Type an instruction (Enter to send, /help for commands)"
	ListPlaceholder   = "Template for each list item, use {{item}}"
	FilePickerTitle   = "Add Markdown files"
	ModelPickerTitle  = "Select model"
	SearchTitle       = "History search: %s"
	HelpTitle         = "mdpilot commands"
)

var polish = map[string]string{
	NoAPIKey:          "Brak klucza API. Użyj /key lub `mdpilot set-key`.",
	Busy:              "Zapytanie jest już w toku.",
	NothingToProcess:  "Brak elementów do przetworzenia.",
	StreamError:       "Błąd strumienia: %s",
	StreamStopped:     "Zatrzymano.",
	QueueStopped:      "Kolejka zatrzymana.",
	BatchFailed:       "Przetwarzanie przerwane przez nieoczekiwany błąd: %v",
	FileSaved:         "Zapisano %s",
	FileSaveError:     "Nie udało się zapisać %s: %v",
	NoOutputFolder:    "Nie wybrano folderu wyjściowego.",
	NoBlocks:          "Ta odpowiedź nie zawiera dokumentów.",
	Copied:            "Skopiowano do schowka.",
	CopyFailed:        "Nie udało się skopiować: %v",
	SettingsSaveError: "Nie udało się zapisać ustawień: %v",
	FilesLoaded:       "Wczytano plików: %d.",
	FilesLoadError:    "Nie udało się wczytać plików: %v",
	ItemsImported:     "Zaimportowano elementów: %d.",
	ItemsImportError:  "Nie udało się zaimportować listy: %v",
	QueueAdded:        "Dodano do kolejki (oczekuje: %d).",
	ListReplaced:      "Lista zastąpiona (elementów: %d).",
	UnknownCommand:    "Nieznane polecenie: %s",
	InvalidArgument:   "/%s: %v",
	ModeSet:           "Tryb: %s",
	ModelSet:          "Model: %s",
	ProviderSet:       "Dostawca: %s",
	UnknownProvider:   "Nieznany dostawca %q (dostępni: %s)",
	TemperatureSet:    "Temperatura: %.2f",
	LanguageSet:       "Język: polski",
	KeySaved:          "Ustawiono klucz API dla %s.",
	FolderSet:         "Folder wyjściowy: %s",
	FileRemoved:       "Usunięto %s",
	FilesCleared:      "Wszystkie pliki usunięte.",
	QueueRemoved:      "Usunięto z kolejki.",
	QueueCleared:      "Kolejka wyczyszczona.",
	ItemAdded:         "Dodano element (na liście: %d).",
	ItemUpdated:       "Zaktualizowano element %d.",
	ListCleared:       "Lista wyczyszczona.",
	TemplateSet:       "Ustawiono szablon.",
	ConversationClear: "Rozmowa wyczyszczona.",
	HistoryExported:   "Wyeksportowano historię do %s",
	HistoryDisabled:   "Historia nie jest zapisywana. Włącz restore_history w config.toml.",
	NoAnswer:          "Brak odpowiedzi.",
	NoMatches:         "Brak wyników dla %q.",
	ModelsLoadError:   "Nie udało się pobrać listy modeli: %v",
	ConfirmClearTitle: "Wyczyść rozmowę",
	ConfirmClear:      "Usunąć wszystkie wiadomości (%d)?",
	ToggleOn:          "%s: wł.",
	ToggleOff:         "%s: wył.",

	StatusStreaming:   "Odbieranie...",
	StatusCooldown:    "Następne zapytanie za %ds",
	StatusFile:        "Plik %d z %d: %s",
	StatusListItem:    "Element %d z %d: %s",
	StatusQueue:       "Prompt %d z %d",
	StatusIdle:        "Gotowy",
	EmptyConversation: "Wczytaj pliki Markdown i wpisz polecenie.",
	NoFolderSelected:  "brak folderu wyjściowego",
	HistoryOn:         "historia wł.",
	HistoryOff:        "historia wył.",
	AutoSaveOn:        "autozapis wł.",
	AutoSaveOff:       "autozapis wył.",
	InputPlaceholder:  "Wpisz polecenie (Enter wysyła, /help pokazuje polecenia)",
	ListPlaceholder:   "Szablon dla każdego elementu listy, użyj {{item}}",
	FilePickerTitle:   "Dodaj pliki Markdown",
	ModelPickerTitle:  "Wybierz model",
	SearchTitle:       "Wyszukiwanie w historii: %s",
	HelpTitle:         "Polecenia mdpilot",
}

var (
	cat     = newCatalog()
	matcher = language.NewMatcher([]language.Tag{language.Polish, language.English})
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for en, pl := range polish {
		_ = b.SetString(language.English, en, en)
		_ = b.SetString(language.Polish, en, pl)
	}
	return b
}

// Tag resolves a language setting ("pl", "en", "en-US") to a supported tag.
// Unknown values fall back to Polish.
func Tag(lang string) language.Tag {
	if lang == "" {
		return language.Polish
	}
	_, idx, conf := matcher.Match(language.Make(lang))
	if conf == language.No {
		return language.Polish
	}
	if idx == 1 {
		return language.English
	}
	return language.Polish
}

// Printer returns a printer for lang.
func Printer(lang string) *message.Printer {
	return message.NewPrinter(Tag(lang), message.Catalog(cat))
}

// T formats key in lang.
func T(lang, key string, args ...any) string {
	return Printer(lang).Sprintf(key, args...)
}

// Languages lists the supported language codes.
func Languages() []string {
	return []string{"pl", "en"}
}
