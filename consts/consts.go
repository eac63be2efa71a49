package consts

// Zod is the only supported target: Zod schemas with a Zodios client.
const Zod = "zod"

// CommonFile holds schemas shared by more than one group file.
const CommonFile = "common"
