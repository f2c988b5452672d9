// Package domain holds the entities shared by every layer: pages loaded
// from uploads (Document), the chunks cut from them (Chunk), the
// conversation records (Turn, Answer, Citation) and AppSettings.
//
// It imports only the standard library. Struct tags name validation rules
// but the validator itself lives in the services layer.
package domain
