// Package repository define las interfaces de acceso a datos del core de
// autenticación: usuarios, roles, permisos, sesiones y refresh tokens.
//
// Cada entidad tiene exactamente un repositorio tipado. Los drivers traducen
// sus errores nativos a los sentinels de este paquete (ErrNotFound,
// ErrConflict) para que los services no dependan del driver.
package repository
